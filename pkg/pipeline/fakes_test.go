package pipeline

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/gel-ops/exifstrip/pkg/storage"
)

// fakeParams serves canned parameter values and counts fetches.
type fakeParams struct {
	values map[string]string
	err    error
	calls  int
}

func (f *fakeParams) GetParameters(_ context.Context, names []string) (map[string]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]string)
	for _, name := range names {
		if v, ok := f.values[name]; ok {
			out[name] = v
		}
	}
	return out, nil
}

// fakeBlobStore records calls and serves configurable failures. Downloads
// write canned object bytes to the local path.
type fakeBlobStore struct {
	mu sync.Mutex

	objects map[string][]byte // key -> content for downloads

	downloadErr error
	uploadErr   error
	deleteErr   error
	missing     map[string]bool // buckets that fail the existence check

	downloads []string
	uploads   []string
	deletes   []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}, missing: map[string]bool{}}
}

func (f *fakeBlobStore) Download(_ context.Context, bucket, key, localPath string) (*storage.DownloadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads = append(f.downloads, bucket+"/"+key)
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", key)
	}
	if err := os.WriteFile(localPath, data, 0644); err != nil {
		return nil, err
	}
	return &storage.DownloadResult{LocalPath: localPath, SHA256: "fakesum", Size: int64(len(data))}, nil
}

func (f *fakeBlobStore) Upload(_ context.Context, bucket, key, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, bucket+"/"+key)
	return f.uploadErr
}

func (f *fakeBlobStore) Delete(_ context.Context, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, bucket+"/"+key)
	return f.deleteErr
}

func (f *fakeBlobStore) BucketExists(_ context.Context, bucket string) error {
	if f.missing[bucket] {
		return fmt.Errorf("bucket not found: %s", bucket)
	}
	return nil
}

// stubProcessor returns scripted outcomes per key.
type stubProcessor struct {
	outcomes map[string]Outcome
	errs     map[string]error
	calls    []string
}

func (s *stubProcessor) Process(_ context.Context, _ *Config, ev FileEvent) (Outcome, error) {
	s.calls = append(s.calls, ev.Key)
	if err, ok := s.errs[ev.Key]; ok {
		return OutcomeFailed, err
	}
	if outcome, ok := s.outcomes[ev.Key]; ok {
		return outcome, nil
	}
	return OutcomeRelocated, nil
}

// validParams returns a parameter set that passes cache validation.
func validParams(prefix string) map[string]string {
	return map[string]string{
		"/" + prefix + "/ingest-bucket":         "ingest",
		"/" + prefix + "/processed-bucket":      "processed",
		"/" + prefix + "/processed-kms-key-arn": "arn:aws:kms:us-east-1:123456789012:key/test",
		"/" + prefix + "/max-file-size":         "10485760",
	}
}

func int64Ptr(v int64) *int64 {
	return &v
}
