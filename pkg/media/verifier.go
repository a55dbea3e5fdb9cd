package media

import "log/slog"

// EXIFAbsent reports whether the file at path carries no EXIF metadata.
// It is the independent post-strip check: StripEXIF claiming success is not
// trusted on its own. An inspection failure propagates as an error rather
// than defaulting to "absent".
func EXIFAbsent(path string) (bool, error) {
	present, err := hasEXIF(path)
	if err != nil {
		slog.Error("verify_inspect_failed", "path", path, "error", err)
		return false, err
	}
	return !present, nil
}
