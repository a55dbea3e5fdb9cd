package commands

import (
	"os"
	"path/filepath"

	"github.com/gel-ops/exifstrip/pkg/errors"
)

// ensureDirectories creates all necessary directories for the application
func ensureDirectories(journalPath, fsmDBPath, scratchDir string) error {
	// Create journal directory
	if err := os.MkdirAll(filepath.Dir(journalPath), 0755); err != nil {
		return errors.Wrap(err, "failed to create journal directory")
	}

	// Create FSM database directory (only needed for process command)
	if fsmDBPath != "" {
		if err := os.MkdirAll(fsmDBPath, 0755); err != nil {
			return errors.Wrap(err, "failed to create FSM directory")
		}
	}

	// Create scratch directory (only needed for process command)
	if scratchDir != "" {
		if err := os.MkdirAll(scratchDir, 0755); err != nil {
			return errors.Wrap(err, "failed to create scratch directory")
		}
	}

	return nil
}
