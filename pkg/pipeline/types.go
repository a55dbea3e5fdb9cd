package pipeline

import "time"

// Outcome is the terminal disposition of one file event.
type Outcome string

const (
	// OutcomeRelocated means the cleaned file was uploaded to the
	// destination bucket and the source object deleted.
	OutcomeRelocated Outcome = "relocated"
	// OutcomeDiscarded means the source object was deleted because it
	// failed validation, stripping, or verification.
	OutcomeDiscarded Outcome = "discarded"
	// OutcomeFailed means an unexpected error prevented determining an
	// outcome; source object state is best-effort.
	OutcomeFailed Outcome = "failed"
)

// FileEvent is one uploaded object reported by the trigger source.
// DeclaredSize is trusted for the size-limit check when present; a missing
// size is grounds for discard.
type FileEvent struct {
	SourceBucket string
	Key          string
	DeclaredSize *int64
}

// Config is the pipeline configuration fetched from the parameter store.
// Immutable once constructed; the cache supersedes it on refresh, never
// mutates it.
type Config struct {
	SourceBucket      string
	DestinationBucket string
	MaxFileSize       int64
	KMSKeyARN         string
	FetchedAt         time.Time
}

// BatchStatus classifies the overall result of one batch invocation.
type BatchStatus string

const (
	StatusSuccess        BatchStatus = "success"
	StatusPartialFailure BatchStatus = "partial_failure"
	StatusError          BatchStatus = "error"
)

// BatchResult is the structured outcome of one batch invocation. Processed
// counts relocated files only; discarded and failed keys both land in
// FailedKeys in event order.
type BatchResult struct {
	Status     BatchStatus `json:"status"`
	Total      int         `json:"total"`
	Processed  int         `json:"processed"`
	Failed     int         `json:"failed"`
	FailedKeys []string    `json:"failed_keys,omitempty"`
}
