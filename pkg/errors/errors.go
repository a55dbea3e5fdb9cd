// Package errors provides error wrapping utilities and failure-kind
// classification for pipeline errors.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a pipeline failure so callers can decide between
// batch-fatal, discard, and per-file failure handling.
type Kind string

const (
	// KindConfig marks configuration fetch/validation failures (batch-fatal).
	KindConfig Kind = "config"
	// KindTransport marks blob-store or parameter-store call failures.
	KindTransport Kind = "transport"
	// KindAccess marks local file read/write failures during a transform.
	KindAccess Kind = "access"
	// KindEncode marks image re-encoding failures during a transform.
	KindEncode Kind = "encode"
)

// Wrap wraps an error with additional context information.
// If err is nil, it returns nil without wrapping.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// kindError attaches a Kind to an underlying error.
type kindError struct {
	kind Kind
	err  error
}

func (e *kindError) Error() string {
	return fmt.Sprintf("%s: %v", e.kind, e.err)
}

func (e *kindError) Unwrap() error {
	return e.err
}

// WithKind tags err with the given failure kind.
// If err is nil, it returns nil.
func WithKind(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: err}
}

// KindOf returns the failure kind attached to err, or "" if none.
func KindOf(err error) Kind {
	var ke *kindError
	if stderrors.As(err, &ke) {
		return ke.kind
	}
	return ""
}
