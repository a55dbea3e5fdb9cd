package pipeline

import (
	"context"
	"log/slog"
)

// Coordinator iterates a batch of file events, delegating each to the file
// processor and aggregating outcomes. One file's failure never aborts the
// batch; the batch boundary itself never raises.
type Coordinator struct {
	cache     *ConfigCache
	processor FileProcessor
}

// NewCoordinator creates a batch coordinator.
func NewCoordinator(cache *ConfigCache, processor FileProcessor) *Coordinator {
	return &Coordinator{cache: cache, processor: processor}
}

// Run processes the events in order and classifies the batch outcome.
// Config is fetched once per batch; when unavailable the batch is a
// configuration error with zero processed.
func (c *Coordinator) Run(ctx context.Context, events []FileEvent) BatchResult {
	total := len(events)

	cfg, err := c.cache.Get(ctx)
	if err != nil {
		slog.Error("batch_config_unavailable", "error", err, "total", total)
		return BatchResult{Status: StatusError, Total: total}
	}

	var failedKeys []string
	processed := 0

	for _, ev := range events {
		outcome, err := c.processor.Process(ctx, cfg, ev)
		if err != nil {
			slog.Error("file_processing_failed", "key", ev.Key, "error", err)
			outcome = OutcomeFailed
		}

		if outcome == OutcomeRelocated {
			processed++
		} else {
			slog.Warn("file_not_relocated", "key", ev.Key, "outcome", outcome)
			failedKeys = append(failedKeys, ev.Key)
		}
	}

	status := StatusSuccess
	switch {
	case total > 0 && processed == 0:
		status = StatusError
		slog.Error("batch_total_failure", "total", total)
	case processed == total:
		slog.Info("batch_success", "total", total)
	default:
		status = StatusPartialFailure
		slog.Warn("batch_partial_failure", "processed", processed, "total", total, "failed", len(failedKeys))
	}

	return BatchResult{
		Status:     status,
		Total:      total,
		Processed:  processed,
		Failed:     len(failedKeys),
		FailedKeys: failedKeys,
	}
}
