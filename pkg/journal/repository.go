// Package journal persists per-object processing outcomes to SQLite so
// operators can audit what the pipeline did with each upload.
package journal

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/gel-ops/exifstrip/pkg/errors"
	_ "modernc.org/sqlite"
)

// Repository provides database operations for the processing journal.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new repository.
func NewRepository(dbPath string) (*Repository, error) {
	slog.Info("journal_init", "db_path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		slog.Error("journal_open_failed", "db_path", dbPath, "error", err)
		return nil, errors.Wrap(err, "failed to open journal database")
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		slog.Error("journal_schema_failed", "db_path", dbPath, "error", err)
		return nil, errors.Wrap(err, "failed to create journal schema")
	}

	slog.Info("journal_ready", "db_path", dbPath)
	return &Repository{db: db}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Create inserts a new journal record.
func (r *Repository) Create(rec *Record) error {
	query := `
		INSERT INTO objects (object_key, source_bucket, sha256, size_bytes, status, reason)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.Exec(query,
		rec.ObjectKey, rec.SourceBucket, rec.SHA256, rec.SizeBytes, rec.Status, rec.Reason)
	if err != nil {
		slog.Error("journal_insert_failed", "key", rec.ObjectKey, "error", err)
		return errors.Wrap(err, "failed to insert journal record")
	}

	id, err := result.LastInsertId()
	if err != nil {
		slog.Error("journal_last_insert_id_failed", "key", rec.ObjectKey, "error", err)
		return errors.Wrap(err, "failed to get last insert id")
	}
	rec.ID = id

	slog.Info("journal_record_created", "key", rec.ObjectKey, "record_id", rec.ID, "status", rec.Status)
	return nil
}

// GetByKey retrieves a record by object key. Returns nil when not found.
func (r *Repository) GetByKey(key string) (*Record, error) {
	query := `
		SELECT id, object_key, source_bucket, sha256, size_bytes, status, reason, created_at, updated_at
		FROM objects WHERE object_key = ?
	`
	var rec Record
	var reason sql.NullString

	err := r.db.QueryRow(query, key).Scan(
		&rec.ID, &rec.ObjectKey, &rec.SourceBucket, &rec.SHA256, &rec.SizeBytes,
		&rec.Status, &reason, &rec.CreatedAt, &rec.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		slog.Error("journal_query_failed", "key", key, "error", err)
		return nil, errors.Wrap(err, "failed to query journal record")
	}

	rec.Reason = reason.String
	return &rec, nil
}

// Update updates an existing journal record.
func (r *Repository) Update(rec *Record) error {
	query := `
		UPDATE objects
		SET source_bucket = ?, sha256 = ?, size_bytes = ?, status = ?, reason = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	result, err := r.db.Exec(query,
		rec.SourceBucket, rec.SHA256, rec.SizeBytes, rec.Status, rec.Reason, rec.ID)
	if err != nil {
		slog.Error("journal_update_failed", "record_id", rec.ID, "key", rec.ObjectKey, "error", err)
		return errors.Wrap(err, "failed to update journal record")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return fmt.Errorf("journal record not found: id=%d", rec.ID)
	}

	slog.Info("journal_record_updated", "record_id", rec.ID, "key", rec.ObjectKey, "status", rec.Status)
	return nil
}

// UpdateStatus updates only the status and reason fields.
func (r *Repository) UpdateStatus(id int64, status, reason string) error {
	query := `UPDATE objects SET status = ?, reason = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	if _, err := r.db.Exec(query, status, reason, id); err != nil {
		slog.Error("journal_status_update_failed", "record_id", id, "status", status, "error", err)
		return errors.Wrap(err, "failed to update status")
	}

	slog.Info("journal_status_updated", "record_id", id, "status", status)
	return nil
}

// List retrieves all journal records, newest first.
func (r *Repository) List() ([]*Record, error) {
	query := `
		SELECT id, object_key, source_bucket, sha256, size_bytes, status, reason, created_at, updated_at
		FROM objects ORDER BY created_at DESC
	`
	rows, err := r.db.Query(query)
	if err != nil {
		slog.Error("journal_list_query_failed", "error", err)
		return nil, errors.Wrap(err, "failed to list journal records")
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		var reason sql.NullString

		err := rows.Scan(
			&rec.ID, &rec.ObjectKey, &rec.SourceBucket, &rec.SHA256, &rec.SizeBytes,
			&rec.Status, &reason, &rec.CreatedAt, &rec.UpdatedAt)
		if err != nil {
			slog.Error("journal_scan_row_failed", "error", err)
			return nil, errors.Wrap(err, "failed to scan row")
		}

		rec.Reason = reason.String
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}

	slog.Info("journal_list_complete", "record_count", len(records))
	return records, nil
}

// Prune deletes terminal records older than the given age. In-flight
// (pending/downloading) rows are kept regardless of age.
func (r *Repository) Prune(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format("2006-01-02 15:04:05")

	query := `
		DELETE FROM objects
		WHERE status IN ('relocated', 'discarded', 'failed') AND updated_at < ?
	`
	result, err := r.db.Exec(query, cutoff)
	if err != nil {
		slog.Error("journal_prune_failed", "error", err)
		return 0, errors.Wrap(err, "failed to prune journal")
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get rows affected")
	}

	slog.Info("journal_pruned", "deleted", deleted, "cutoff", cutoff)
	return deleted, nil
}
