package media

import (
	goerrors "errors"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"

	exif "github.com/dsoprea/go-exif/v3"
	"github.com/gel-ops/exifstrip/pkg/errors"
)

// encodeQuality is used for the metadata-free re-encode. High enough that
// the transform is visually lossless for typical uploads.
const encodeQuality = 95

// hasEXIF reports whether the file carries an EXIF payload. An inspection
// failure is distinct from "no EXIF present".
func hasEXIF(path string) (bool, error) {
	_, err := exif.SearchFileAndExtractExif(path)
	if err != nil {
		if goerrors.Is(err, exif.ErrNoExif) {
			return false, nil
		}
		return false, errors.WithKind(errors.KindAccess, errors.Wrap(err, "failed to inspect EXIF"))
	}
	return true, nil
}

// StripEXIF removes EXIF metadata from the JPEG at path atomically.
//
// If no EXIF is present the file is left byte-for-byte unchanged. Otherwise
// the metadata-free re-encoding is written to a temp file in the same
// directory (same filesystem, so the final rename is atomic) and only after
// the write completes and the handle is closed does it replace the original.
// On any failure the temp file is removed and the original is untouched.
// Errors carry KindAccess for file I/O failures and KindEncode for image
// re-encoding failures.
func StripEXIF(path string) error {
	present, err := hasEXIF(path)
	if err != nil {
		slog.Error("strip_inspect_failed", "path", path, "error", err)
		return err
	}
	if !present {
		slog.Info("strip_noop", "path", path)
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		slog.Error("strip_open_failed", "path", path, "error", err)
		return errors.WithKind(errors.KindAccess, errors.Wrap(err, "failed to open file for EXIF stripping"))
	}
	img, err := jpeg.Decode(f)
	f.Close()
	if err != nil {
		slog.Error("strip_decode_failed", "path", path, "error", err)
		return errors.WithKind(errors.KindEncode, errors.Wrap(err, "failed to decode image for EXIF stripping"))
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "strip-*"+filepath.Ext(path))
	if err != nil {
		slog.Error("strip_temp_creation_failed", "dir", dir, "error", err)
		return errors.WithKind(errors.KindAccess, errors.Wrap(err, "failed to create temp file"))
	}
	tmpPath := tmp.Name()

	if err := jpeg.Encode(tmp, img, &jpeg.Options{Quality: encodeQuality}); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		slog.Error("strip_encode_failed", "path", path, "error", err)
		return errors.WithKind(errors.KindEncode, errors.Wrap(err, "failed to re-encode image"))
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		slog.Error("strip_temp_close_failed", "path", tmpPath, "error", err)
		return errors.WithKind(errors.KindAccess, errors.Wrap(err, "failed to close temp file"))
	}

	// Atomic replace only after the temp file is fully written and closed.
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		slog.Error("strip_rename_failed", "from", tmpPath, "to", path, "error", err)
		return errors.WithKind(errors.KindAccess, errors.Wrap(err, "failed to replace original file"))
	}

	slog.Info("strip_complete", "path", path)
	return nil
}
