// Package media implements JPEG classification, EXIF stripping, and
// post-strip verification on local scratch files.
package media

import (
	"image"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	// Registered so non-JPEG uploads are recognized by format tag and
	// rejected instead of falling through as undecodable.
	_ "image/gif"
	_ "image/png"
)

// IsValidJPEG reports whether the file at path is a structurally valid JPEG.
// Files without a recognized JPEG extension are rejected without being
// opened. Decode and format errors never propagate; they yield a negative
// classification with a diagnostic log entry.
func IsValidJPEG(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".jpg" && ext != ".jpeg" {
		slog.Debug("classify_rejected_extension", "path", path, "ext", ext)
		return false
	}

	f, err := os.Open(path)
	if err != nil {
		slog.Warn("classify_open_failed", "path", path, "error", err)
		return false
	}

	_, format, err := image.DecodeConfig(f)
	f.Close()
	if err != nil {
		slog.Warn("classify_unrecognized_format", "path", path, "error", err)
		return false
	}
	if format != "jpeg" {
		slog.Warn("classify_rejected_format", "path", path, "format", format)
		return false
	}

	// Second pass on a fresh handle: full decode catches structural damage
	// that the header inspection above does not.
	f, err = os.Open(path)
	if err != nil {
		slog.Warn("classify_reopen_failed", "path", path, "error", err)
		return false
	}
	defer f.Close()

	if _, err := jpeg.Decode(f); err != nil {
		slog.Warn("classify_structural_check_failed", "path", path, "error", err)
		return false
	}

	return true
}
