// Package metrics abstracts metric recording for pipeline phase executions.
// This facilitates integration with different metrics backends; a no-op recorder
// serves single-shot stage invocations and a Prometheus recorder serves the
// long-lived scheduler mode.
package metrics

import (
	"context"
	"time"
)

// MetricRecorder is an abstract interface for recording metrics related to phase execution.
type MetricRecorder interface {
	// RecordPhaseStart records the start of a phase execution.
	RecordPhaseStart(ctx context.Context, batchID, phase string)

	// RecordPhaseEnd records the end of a phase execution with its terminal status
	// and duration.
	RecordPhaseEnd(ctx context.Context, batchID, phase, status string, duration time.Duration)

	// RecordRows adds to the per-phase row counter for the given kind
	// (e.g., "processed", "valid", "invalid", "skipped", "failed").
	RecordRows(ctx context.Context, phase, kind string, count int64)
}

// NoopRecorder discards all metrics. It is the default for one-shot stage invocations,
// where a scrape endpoint would outlive the process anyway.
type NoopRecorder struct{}

// NewNoopRecorder creates a new NoopRecorder.
func NewNoopRecorder() MetricRecorder {
	return &NoopRecorder{}
}

func (r *NoopRecorder) RecordPhaseStart(ctx context.Context, batchID, phase string) {}

func (r *NoopRecorder) RecordPhaseEnd(ctx context.Context, batchID, phase, status string, duration time.Duration) {
}

func (r *NoopRecorder) RecordRows(ctx context.Context, phase, kind string, count int64) {}

var _ MetricRecorder = (*NoopRecorder)(nil)
