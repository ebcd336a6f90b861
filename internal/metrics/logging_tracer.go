package metrics

import (
	"context"

	"github.com/tigerroll/weatherpipe/internal/support/logger"
)

// LoggingTracer is an implementation of Tracer that writes span boundaries to the log.
type LoggingTracer struct{}

// NewLoggingTracer creates a new instance of LoggingTracer.
func NewLoggingTracer() Tracer {
	return &LoggingTracer{}
}

// StartPhaseSpan starts a new span for a phase execution.
func (t *LoggingTracer) StartPhaseSpan(ctx context.Context, batchID, phase string) (context.Context, func()) {
	logger.Debugf("Tracer: span started for phase '%s' batch '%s'", phase, batchID)
	return ctx, func() {
		logger.Debugf("Tracer: span finished for phase '%s' batch '%s'", phase, batchID)
	}
}

// RecordError records an error in the current span.
func (t *LoggingTracer) RecordError(ctx context.Context, module string, err error) {
	logger.Debugf("Tracer: error recorded in module %s: %v", module, err)
}

// RecordEvent records an event in the current span.
func (t *LoggingTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	logger.Debugf("Tracer: event recorded: %s, attributes: %v", name, attributes)
}

var _ Tracer = (*LoggingTracer)(nil)
