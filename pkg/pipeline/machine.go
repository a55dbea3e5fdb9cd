// Package pipeline implements the validation-and-transform pipeline: the
// TTL-cached configuration, the per-file state machine that classifies,
// strips, verifies, and relocates each upload, and the batch coordinator
// that aggregates outcomes. Per-file orchestration runs on the
// superfly/fsm library.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gel-ops/exifstrip/pkg/errors"
	"github.com/gel-ops/exifstrip/pkg/journal"
	"github.com/gel-ops/exifstrip/pkg/media"
	"github.com/gel-ops/exifstrip/pkg/security"
	"github.com/superfly/fsm"
)

// State names
const (
	StateSizeCheck = "size_check"
	StateDownload  = "download"
	StateClassify  = "classify"
	StateStrip     = "strip"
	StateVerify    = "verify"
	StateRelocate  = "relocate"
	StateFailed    = "failed"
)

// StripRequest is the FSM input: one file event plus the batch
// configuration it runs under.
type StripRequest struct {
	SourceBucket string
	Key          string
	DeclaredSize *int64

	DestinationBucket string
	MaxFileSize       int64
	KMSKeyARN         string
}

// StripResponse is the FSM output (accumulated across transitions).
type StripResponse struct {
	// From SizeCheck
	RecordID int64

	// From Download
	ScratchPath  string
	SHA256       string
	DownloadSize int64

	// Terminal disposition; once set, remaining states pass through.
	Outcome Outcome
	Reason  string
}

// Machine holds dependencies for FSM transitions.
type Machine struct {
	store      BlobStore
	journal    *journal.Repository
	validator  *security.Validator
	scratchDir string

	manager *fsm.Manager
	start   fsm.Start[StripRequest, StripResponse]
}

// NewMachine creates a new FSM machine with dependencies.
func NewMachine(store BlobStore, jr *journal.Repository, validator *security.Validator, scratchDir string) *Machine {
	return &Machine{
		store:      store,
		journal:    jr,
		validator:  validator,
		scratchDir: scratchDir,
	}
}

// Register registers the per-file pipeline FSM with the manager.
// Every handler error aborts: a failed step is terminal for that file
// within the current invocation, redelivery is the trigger source's job.
func (m *Machine) Register(ctx context.Context, manager *fsm.Manager) error {
	start, _, err := fsm.Register[StripRequest, StripResponse](manager, "file-strip").
		Start(StateSizeCheck, m.handleSizeCheck).
		To(StateDownload, m.handleDownload).
		To(StateClassify, m.handleClassify).
		To(StateStrip, m.handleStrip).
		To(StateVerify, m.handleVerify).
		To(StateRelocate, m.handleRelocate).
		End(StateFailed).
		Build(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to register FSM")
	}

	m.manager = manager
	m.start = start
	return nil
}

// Process runs one file event through the state machine and returns its
// outcome. The scratch file is removed on every exit path.
func (m *Machine) Process(ctx context.Context, cfg *Config, ev FileEvent) (Outcome, error) {
	req := &StripRequest{
		SourceBucket:      ev.SourceBucket,
		Key:               ev.Key,
		DeclaredSize:      ev.DeclaredSize,
		DestinationBucket: cfg.DestinationBucket,
		MaxFileSize:       cfg.MaxFileSize,
		KMSKeyARN:         cfg.KMSKeyARN,
	}
	resp := &StripResponse{}

	defer func() {
		if resp.ScratchPath == "" {
			return
		}
		if err := os.Remove(resp.ScratchPath); err != nil && !os.IsNotExist(err) {
			slog.Warn("scratch_cleanup_failed", "path", resp.ScratchPath, "error", err)
		} else {
			slog.Debug("scratch_cleaned", "path", resp.ScratchPath)
		}
	}()

	version, err := m.start(ctx, ev.Key, fsm.NewRequest(req, resp))
	if err != nil {
		return OutcomeFailed, errors.Wrap(err, "FSM start failed")
	}

	if err := m.manager.Wait(ctx, version); err != nil {
		return OutcomeFailed, errors.Wrap(err, "FSM execution failed")
	}

	if resp.Outcome == "" {
		return OutcomeFailed, fmt.Errorf("pipeline finished without outcome for %s", ev.Key)
	}
	return resp.Outcome, nil
}

// handleSizeCheck rejects events with a missing or over-limit declared size
// before anything is downloaded, and gates hostile object keys.
func (m *Machine) handleSizeCheck(ctx context.Context, req *fsm.Request[StripRequest, StripResponse]) (*fsm.Response[StripResponse], error) {
	slog.Info("fsm_state_size_check", "key", req.Msg.Key)

	resp := req.W.Msg
	if resp == nil {
		resp = &StripResponse{}
	}

	m.ensureRecord(req.Msg, resp)

	if err := m.validator.ValidateObjectKey(req.Msg.Key); err != nil {
		return m.discard(ctx, req, resp, fmt.Sprintf("invalid object key: %v", err))
	}

	if req.Msg.DeclaredSize == nil {
		return m.discard(ctx, req, resp, "declared size missing from event")
	}
	if *req.Msg.DeclaredSize > req.Msg.MaxFileSize {
		return m.discard(ctx, req, resp,
			fmt.Sprintf("declared size %d exceeds limit %d", *req.Msg.DeclaredSize, req.Msg.MaxFileSize))
	}

	return fsm.NewResponse(resp), nil
}

// handleDownload pulls the source object into a scratch file. A transport
// failure here is not converted to a discard: the source object is left
// untouched and the failure surfaces at the batch level.
func (m *Machine) handleDownload(ctx context.Context, req *fsm.Request[StripRequest, StripResponse]) (*fsm.Response[StripResponse], error) {
	slog.Info("fsm_state_download", "key", req.Msg.Key)

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}
	if resp.Outcome != "" {
		return fsm.NewResponse(resp), nil
	}

	m.recordStatus(resp, journal.StatusDownloading, "")

	if err := os.MkdirAll(m.scratchDir, 0755); err != nil {
		slog.Error("scratch_dir_creation_failed", "path", m.scratchDir, "error", err)
		return nil, fsm.Abort(errors.Wrap(err, "failed to create scratch dir"))
	}

	// The extension is preserved so format validation sees it.
	tmp, err := os.CreateTemp(m.scratchDir, "ingest-*"+filepath.Ext(req.Msg.Key))
	if err != nil {
		slog.Error("scratch_file_creation_failed", "dir", m.scratchDir, "error", err)
		return nil, fsm.Abort(errors.Wrap(err, "failed to create scratch file"))
	}
	tmp.Close()
	resp.ScratchPath = tmp.Name()

	result, err := m.store.Download(ctx, req.Msg.SourceBucket, req.Msg.Key, resp.ScratchPath)
	if err != nil {
		slog.Error("download_failed", "key", req.Msg.Key, "error", err)
		m.recordStatus(resp, journal.StatusFailed, "download failed")
		return nil, fsm.Abort(errors.Wrap(err, "failed to download source object"))
	}

	resp.SHA256 = result.SHA256
	resp.DownloadSize = result.Size
	m.recordDownload(req.Msg, resp)

	slog.Info("download_complete", "key", req.Msg.Key, "size_bytes", result.Size, "scratch", resp.ScratchPath)
	return fsm.NewResponse(resp), nil
}

// handleClassify discards anything that is not a structurally valid JPEG.
func (m *Machine) handleClassify(ctx context.Context, req *fsm.Request[StripRequest, StripResponse]) (*fsm.Response[StripResponse], error) {
	slog.Info("fsm_state_classify", "key", req.Msg.Key)

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}
	if resp.Outcome != "" {
		return fsm.NewResponse(resp), nil
	}

	if !media.IsValidJPEG(resp.ScratchPath) {
		return m.discard(ctx, req, resp, "not a valid JPEG")
	}

	return fsm.NewResponse(resp), nil
}

// handleStrip removes EXIF metadata from the scratch copy. On failure the
// scratch copy is presumed corrupted by the attempt and the source object
// is discarded.
func (m *Machine) handleStrip(ctx context.Context, req *fsm.Request[StripRequest, StripResponse]) (*fsm.Response[StripResponse], error) {
	slog.Info("fsm_state_strip", "key", req.Msg.Key)

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}
	if resp.Outcome != "" {
		return fsm.NewResponse(resp), nil
	}

	if err := media.StripEXIF(resp.ScratchPath); err != nil {
		return m.discard(ctx, req, resp, fmt.Sprintf("EXIF strip failed (%s): %v", errors.KindOf(err), err))
	}

	return fsm.NewResponse(resp), nil
}

// handleVerify independently confirms the strip removed all metadata.
// An inspection failure counts as unverified and discards, fail-closed.
func (m *Machine) handleVerify(ctx context.Context, req *fsm.Request[StripRequest, StripResponse]) (*fsm.Response[StripResponse], error) {
	slog.Info("fsm_state_verify", "key", req.Msg.Key)

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}
	if resp.Outcome != "" {
		return fsm.NewResponse(resp), nil
	}

	absent, err := media.EXIFAbsent(resp.ScratchPath)
	if err != nil {
		return m.discard(ctx, req, resp, fmt.Sprintf("EXIF verification failed: %v", err))
	}
	if !absent {
		return m.discard(ctx, req, resp, "EXIF still present after strip")
	}

	return fsm.NewResponse(resp), nil
}

// handleRelocate uploads the verified-clean scratch copy to the destination
// bucket under the same key, then deletes the source object. A transport
// failure on either call aborts without touching the source; if the delete
// fails after a successful upload the object exists in both buckets, a
// known limitation surfaced as a per-file failure.
func (m *Machine) handleRelocate(ctx context.Context, req *fsm.Request[StripRequest, StripResponse]) (*fsm.Response[StripResponse], error) {
	slog.Info("fsm_state_relocate", "key", req.Msg.Key)

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}
	if resp.Outcome != "" {
		return fsm.NewResponse(resp), nil
	}

	if err := m.store.Upload(ctx, req.Msg.DestinationBucket, req.Msg.Key, resp.ScratchPath, req.Msg.KMSKeyARN); err != nil {
		slog.Error("relocate_upload_failed", "key", req.Msg.Key, "error", err)
		m.recordStatus(resp, journal.StatusFailed, "upload to destination failed")
		return nil, fsm.Abort(errors.Wrap(err, "failed to upload to destination"))
	}

	if err := m.store.Delete(ctx, req.Msg.SourceBucket, req.Msg.Key); err != nil {
		slog.Error("relocate_source_delete_failed", "key", req.Msg.Key, "error", err)
		m.recordStatus(resp, journal.StatusFailed, "source delete after upload failed")
		return nil, fsm.Abort(errors.Wrap(err, "failed to delete source object after upload"))
	}

	resp.Outcome = OutcomeRelocated
	m.recordStatus(resp, journal.StatusRelocated, "")

	slog.Info("relocate_complete", "key", req.Msg.Key, "destination", req.Msg.DestinationBucket)
	return fsm.NewResponse(resp), nil
}

// discard deletes the source object and records the discard outcome.
// If the delete itself fails the outcome degrades to a per-file failure.
func (m *Machine) discard(ctx context.Context, req *fsm.Request[StripRequest, StripResponse], resp *StripResponse, reason string) (*fsm.Response[StripResponse], error) {
	slog.Warn("discarding_source_object", "bucket", req.Msg.SourceBucket, "key", req.Msg.Key, "reason", reason)

	if err := m.store.Delete(ctx, req.Msg.SourceBucket, req.Msg.Key); err != nil {
		m.recordStatus(resp, journal.StatusFailed, reason+"; source delete failed")
		return nil, fsm.Abort(errors.Wrap(err, "failed to delete source object"))
	}

	resp.Outcome = OutcomeDiscarded
	resp.Reason = reason
	m.recordStatus(resp, journal.StatusDiscarded, reason)

	return fsm.NewResponse(resp), nil
}

// ensureRecord creates or finds the journal row for this key. Journal
// writes are best-effort: an audit gap never changes what happens to the
// object.
func (m *Machine) ensureRecord(req *StripRequest, resp *StripResponse) {
	if m.journal == nil {
		return
	}

	rec, err := m.journal.GetByKey(req.Key)
	if err != nil {
		slog.Warn("journal_lookup_failed", "key", req.Key, "error", err)
		return
	}
	if rec != nil {
		resp.RecordID = rec.ID
		return
	}

	rec = &journal.Record{
		ObjectKey:    req.Key,
		SourceBucket: req.SourceBucket,
		Status:       journal.StatusPending,
	}
	if req.DeclaredSize != nil {
		rec.SizeBytes = *req.DeclaredSize
	}
	if err := m.journal.Create(rec); err != nil {
		slog.Warn("journal_create_failed", "key", req.Key, "error", err)
		return
	}
	resp.RecordID = rec.ID
}

func (m *Machine) recordStatus(resp *StripResponse, status, reason string) {
	if m.journal == nil || resp.RecordID == 0 {
		return
	}
	if err := m.journal.UpdateStatus(resp.RecordID, status, reason); err != nil {
		slog.Warn("journal_status_update_failed", "record_id", resp.RecordID, "status", status, "error", err)
	}
}

func (m *Machine) recordDownload(req *StripRequest, resp *StripResponse) {
	if m.journal == nil || resp.RecordID == 0 {
		return
	}
	rec, err := m.journal.GetByKey(req.Key)
	if err != nil || rec == nil {
		slog.Warn("journal_lookup_failed", "key", req.Key, "error", err)
		return
	}
	rec.SHA256 = resp.SHA256
	rec.SizeBytes = resp.DownloadSize
	if err := m.journal.Update(rec); err != nil {
		slog.Warn("journal_update_failed", "key", req.Key, "error", err)
	}
}
