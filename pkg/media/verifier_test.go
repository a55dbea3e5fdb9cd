package media

import "testing"

func TestEXIFAbsent_CleanFile(t *testing.T) {
	path := writeFile(t, "clean.jpg", encodeTestJPEG(t))

	absent, err := EXIFAbsent(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !absent {
		t.Error("expected EXIF to be reported absent on clean JPEG")
	}
}

func TestEXIFAbsent_TaggedFile(t *testing.T) {
	path := writeFile(t, "tagged.jpg", encodeTestJPEGWithEXIF(t))

	absent, err := EXIFAbsent(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if absent {
		t.Error("expected EXIF to be reported present")
	}
}

func TestEXIFAbsent_MissingFilePropagatesError(t *testing.T) {
	// An inspection failure must never default to "absent".
	if _, err := EXIFAbsent("/nonexistent/photo.jpg"); err == nil {
		t.Error("expected error for missing file")
	}
}
