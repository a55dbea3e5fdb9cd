package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gel-ops/exifstrip/internal/config"
	"github.com/gel-ops/exifstrip/pkg/errors"
	"github.com/gel-ops/exifstrip/pkg/journal"
	"github.com/spf13/cobra"
)

var (
	cleanupScratch     bool
	cleanupJournalDays int
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Clean up pipeline resources (orphaned scratch files, old journal rows)",
	Long: `Clean up resources left behind by the pipeline:
  --scratch            Remove orphaned scratch files left by crashed runs
  --journal-days <n>   Prune terminal journal rows older than n days`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().BoolVar(&cleanupScratch, "scratch", false, "Remove orphaned scratch files")
	cleanupCmd.Flags().IntVar(&cleanupJournalDays, "journal-days", 0, "Prune journal rows older than this many days")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}

	if !cleanupScratch && cleanupJournalDays <= 0 {
		return fmt.Errorf("must specify --scratch and/or --journal-days")
	}

	if cleanupScratch {
		if err := cleanupScratchFiles(cfg.ScratchDir); err != nil {
			return err
		}
	}

	if cleanupJournalDays > 0 {
		if err := cleanupJournalRows(cfg.JournalPath, cleanupJournalDays); err != nil {
			return err
		}
	}

	return nil
}

// cleanupScratchFiles removes leftover scratch files. Anything matching the
// pipeline's own temp-file prefixes is an orphan: live runs unlink their
// scratch copies before returning.
func cleanupScratchFiles(scratchDir string) error {
	entries, err := os.ReadDir(scratchDir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("No scratch directory found")
			return nil
		}
		return errors.Wrap(err, "failed to read scratch directory")
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, "ingest-") && !strings.HasPrefix(name, "strip-") {
			continue
		}

		path := filepath.Join(scratchDir, name)
		if err := os.Remove(path); err != nil {
			fmt.Printf("⚠️  Failed to remove %s: %v\n", path, err)
			continue
		}
		removed++
	}

	fmt.Printf("🧹 Removed %d orphaned scratch files from %s\n", removed, scratchDir)
	return nil
}

func cleanupJournalRows(journalPath string, days int) error {
	if err := ensureDirectories(journalPath, "", ""); err != nil {
		return err
	}

	repo, err := journal.NewRepository(journalPath)
	if err != nil {
		return errors.Wrap(err, "journal init failed")
	}
	defer repo.Close()

	deleted, err := repo.Prune(time.Duration(days) * 24 * time.Hour)
	if err != nil {
		return errors.Wrap(err, "journal prune failed")
	}

	fmt.Printf("🧹 Pruned %d journal rows older than %d days\n", deleted, days)
	return nil
}
