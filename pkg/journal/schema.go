package journal

// Schema defines the SQLite schema for the processing journal. One row per
// object key records how the pipeline disposed of that object.
const Schema = `
CREATE TABLE IF NOT EXISTS objects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    object_key TEXT NOT NULL UNIQUE,
    source_bucket TEXT NOT NULL,
    sha256 TEXT NOT NULL DEFAULT '',
    size_bytes INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL CHECK(status IN ('pending', 'downloading', 'relocated', 'discarded', 'failed')),
    reason TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_objects_object_key ON objects(object_key);
CREATE INDEX IF NOT EXISTS idx_objects_status ON objects(status);
CREATE INDEX IF NOT EXISTS idx_objects_created_at ON objects(created_at);
`

// Status constants
const (
	StatusPending     = "pending"
	StatusDownloading = "downloading"
	StatusRelocated   = "relocated"
	StatusDiscarded   = "discarded"
	StatusFailed      = "failed"
)

// Record represents one processed object.
type Record struct {
	ID           int64
	ObjectKey    string
	SourceBucket string
	SHA256       string
	SizeBytes    int64
	Status       string
	Reason       string
	CreatedAt    string
	UpdatedAt    string
}
