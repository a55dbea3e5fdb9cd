package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/gel-ops/exifstrip/pkg/security"
	"github.com/superfly/fsm"
)

func newTestMachine(t *testing.T, store *fakeBlobStore) *Machine {
	t.Helper()
	return NewMachine(store, nil, security.NewValidator(1024), t.TempDir())
}

func stripRequest(key string, size *int64) *StripRequest {
	return &StripRequest{
		SourceBucket:      "ingest",
		Key:               key,
		DeclaredSize:      size,
		DestinationBucket: "processed",
		MaxFileSize:       10 * 1024 * 1024,
		KMSKeyARN:         "arn:aws:kms:us-east-1:123456789012:key/test",
	}
}

// jpegBytes produces a small real JPEG for download fixtures.
func jpegBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 32), G: uint8(y * 32), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode fixture JPEG: %v", err)
	}
	return buf.Bytes()
}

func TestHandleSizeCheck_OversizeDiscardsWithoutDownload(t *testing.T) {
	store := newFakeBlobStore()
	m := newTestMachine(t, store)

	req := stripRequest("big.jpg", int64Ptr(10*1024*1024+1))
	resp := &StripResponse{}

	_, err := m.handleSizeCheck(context.Background(), fsm.NewRequest(req, resp))
	if err != nil {
		t.Fatalf("handleSizeCheck failed: %v", err)
	}

	if resp.Outcome != OutcomeDiscarded {
		t.Errorf("expected discard, got %q", resp.Outcome)
	}
	if len(store.downloads) != 0 {
		t.Errorf("oversize object must not be downloaded, got %v", store.downloads)
	}
	if len(store.deletes) != 1 || store.deletes[0] != "ingest/big.jpg" {
		t.Errorf("expected source delete, got %v", store.deletes)
	}
}

func TestHandleSizeCheck_MissingSizeDiscards(t *testing.T) {
	store := newFakeBlobStore()
	m := newTestMachine(t, store)

	resp := &StripResponse{}
	_, err := m.handleSizeCheck(context.Background(), fsm.NewRequest(stripRequest("nosize.jpg", nil), resp))
	if err != nil {
		t.Fatalf("handleSizeCheck failed: %v", err)
	}

	if resp.Outcome != OutcomeDiscarded {
		t.Errorf("expected discard for missing declared size, got %q", resp.Outcome)
	}
	if len(store.downloads) != 0 {
		t.Errorf("expected no download, got %v", store.downloads)
	}
}

func TestHandleSizeCheck_HostileKeyDiscards(t *testing.T) {
	store := newFakeBlobStore()
	m := newTestMachine(t, store)

	resp := &StripResponse{}
	_, err := m.handleSizeCheck(context.Background(), fsm.NewRequest(stripRequest("../../etc/passwd", int64Ptr(100)), resp))
	if err != nil {
		t.Fatalf("handleSizeCheck failed: %v", err)
	}

	if resp.Outcome != OutcomeDiscarded {
		t.Errorf("expected discard for traversal key, got %q", resp.Outcome)
	}
}

func TestHandleSizeCheck_WithinLimitsContinues(t *testing.T) {
	store := newFakeBlobStore()
	m := newTestMachine(t, store)

	resp := &StripResponse{}
	_, err := m.handleSizeCheck(context.Background(), fsm.NewRequest(stripRequest("ok.jpg", int64Ptr(2048)), resp))
	if err != nil {
		t.Fatalf("handleSizeCheck failed: %v", err)
	}

	if resp.Outcome != "" {
		t.Errorf("expected no terminal outcome, got %q", resp.Outcome)
	}
	if len(store.deletes) != 0 {
		t.Errorf("expected no deletes, got %v", store.deletes)
	}
}

func TestHandleDownload_WritesScratchFile(t *testing.T) {
	store := newFakeBlobStore()
	store.objects["photo.jpg"] = jpegBytes(t)
	m := newTestMachine(t, store)

	resp := &StripResponse{}
	_, err := m.handleDownload(context.Background(), fsm.NewRequest(stripRequest("photo.jpg", int64Ptr(2048)), resp))
	if err != nil {
		t.Fatalf("handleDownload failed: %v", err)
	}

	if resp.ScratchPath == "" {
		t.Fatal("expected a scratch path")
	}
	if filepath.Ext(resp.ScratchPath) != ".jpg" {
		t.Errorf("scratch file must keep the source extension, got %s", resp.ScratchPath)
	}
	if _, err := os.Stat(resp.ScratchPath); err != nil {
		t.Errorf("scratch file missing: %v", err)
	}
}

func TestHandleDownload_FailureLeavesSourceIntact(t *testing.T) {
	store := newFakeBlobStore()
	store.downloadErr = fmt.Errorf("connection reset")
	m := newTestMachine(t, store)

	resp := &StripResponse{}
	_, err := m.handleDownload(context.Background(), fsm.NewRequest(stripRequest("photo.jpg", int64Ptr(2048)), resp))
	if err == nil {
		t.Fatal("expected download failure to surface as an error")
	}

	if resp.Outcome == OutcomeDiscarded {
		t.Error("a transport failure must not discard the source object")
	}
	if len(store.deletes) != 0 {
		t.Errorf("source object must not be deleted on download failure, got %v", store.deletes)
	}
}

func TestHandleClassify_InvalidContentDiscards(t *testing.T) {
	store := newFakeBlobStore()
	m := newTestMachine(t, store)

	scratch := filepath.Join(t.TempDir(), "fake.jpg")
	if err := os.WriteFile(scratch, []byte("definitely not a jpeg"), 0644); err != nil {
		t.Fatal(err)
	}

	resp := &StripResponse{ScratchPath: scratch}
	_, err := m.handleClassify(context.Background(), fsm.NewRequest(stripRequest("fake.jpg", int64Ptr(100)), resp))
	if err != nil {
		t.Fatalf("handleClassify failed: %v", err)
	}

	if resp.Outcome != OutcomeDiscarded {
		t.Errorf("expected discard, got %q", resp.Outcome)
	}
	if len(store.deletes) != 1 || store.deletes[0] != "ingest/fake.jpg" {
		t.Errorf("expected source delete, got %v", store.deletes)
	}
}

func TestHandleClassify_ValidJPEGContinues(t *testing.T) {
	store := newFakeBlobStore()
	m := newTestMachine(t, store)

	scratch := filepath.Join(t.TempDir(), "real.jpg")
	if err := os.WriteFile(scratch, jpegBytes(t), 0644); err != nil {
		t.Fatal(err)
	}

	resp := &StripResponse{ScratchPath: scratch}
	_, err := m.handleClassify(context.Background(), fsm.NewRequest(stripRequest("real.jpg", int64Ptr(100)), resp))
	if err != nil {
		t.Fatalf("handleClassify failed: %v", err)
	}

	if resp.Outcome != "" {
		t.Errorf("expected no terminal outcome, got %q", resp.Outcome)
	}
}

func TestHandlers_PassThroughAfterOutcome(t *testing.T) {
	store := newFakeBlobStore()
	m := newTestMachine(t, store)
	req := stripRequest("done.jpg", int64Ptr(100))

	// Once a file is resolved, later states must not touch storage.
	resp := &StripResponse{Outcome: OutcomeDiscarded, Reason: "not a valid JPEG"}

	handlers := []func(context.Context, *fsm.Request[StripRequest, StripResponse]) (*fsm.Response[StripResponse], error){
		m.handleDownload,
		m.handleClassify,
		m.handleStrip,
		m.handleVerify,
		m.handleRelocate,
	}
	for i, h := range handlers {
		if _, err := h(context.Background(), fsm.NewRequest(req, resp)); err != nil {
			t.Fatalf("handler %d failed on resolved file: %v", i, err)
		}
	}

	if len(store.downloads)+len(store.uploads)+len(store.deletes) != 0 {
		t.Errorf("resolved file must not touch storage: downloads=%v uploads=%v deletes=%v",
			store.downloads, store.uploads, store.deletes)
	}
	if resp.Outcome != OutcomeDiscarded {
		t.Errorf("outcome must be preserved, got %q", resp.Outcome)
	}
}

func TestHandleRelocate_UploadFailureLeavesSource(t *testing.T) {
	store := newFakeBlobStore()
	store.uploadErr = fmt.Errorf("access denied")
	m := newTestMachine(t, store)

	resp := &StripResponse{ScratchPath: "/tmp/does-not-matter.jpg"}
	_, err := m.handleRelocate(context.Background(), fsm.NewRequest(stripRequest("photo.jpg", int64Ptr(100)), resp))
	if err == nil {
		t.Fatal("expected upload failure to surface as an error")
	}

	if len(store.deletes) != 0 {
		t.Errorf("source must survive an upload failure, got deletes %v", store.deletes)
	}
	if resp.Outcome == OutcomeRelocated {
		t.Error("file must not be marked relocated after a failed upload")
	}
}

func TestHandleRelocate_Success(t *testing.T) {
	store := newFakeBlobStore()
	m := newTestMachine(t, store)

	resp := &StripResponse{ScratchPath: "/tmp/clean.jpg"}
	_, err := m.handleRelocate(context.Background(), fsm.NewRequest(stripRequest("photo.jpg", int64Ptr(100)), resp))
	if err != nil {
		t.Fatalf("handleRelocate failed: %v", err)
	}

	if resp.Outcome != OutcomeRelocated {
		t.Errorf("expected relocated outcome, got %q", resp.Outcome)
	}
	if len(store.uploads) != 1 || store.uploads[0] != "processed/photo.jpg" {
		t.Errorf("expected upload to destination under same key, got %v", store.uploads)
	}
	if len(store.deletes) != 1 || store.deletes[0] != "ingest/photo.jpg" {
		t.Errorf("expected source delete after upload, got %v", store.deletes)
	}
}

func TestDiscard_DeleteFailureDegradesToFailure(t *testing.T) {
	store := newFakeBlobStore()
	store.deleteErr = fmt.Errorf("delete denied")
	m := newTestMachine(t, store)

	resp := &StripResponse{}
	_, err := m.discard(context.Background(), fsm.NewRequest(stripRequest("bad.jpg", int64Ptr(100)), resp), resp, "not a valid JPEG")
	if err == nil {
		t.Fatal("expected an error when the source delete fails")
	}

	if resp.Outcome == OutcomeDiscarded {
		t.Error("discard outcome must not be recorded when the delete failed")
	}
}
