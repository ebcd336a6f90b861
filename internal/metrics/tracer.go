package metrics

import (
	"context"
)

// Tracer is an abstract interface for tracing phase executions. The logging
// implementation below writes span boundaries to the log; a real exporter can be
// swapped in without touching the phase runner.
type Tracer interface {
	// StartPhaseSpan starts a new span for a phase execution and returns the
	// (possibly derived) context plus a finish function.
	StartPhaseSpan(ctx context.Context, batchID, phase string) (context.Context, func())

	// RecordError records an error in the current span.
	RecordError(ctx context.Context, module string, err error)

	// RecordEvent records an event in the current span.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
