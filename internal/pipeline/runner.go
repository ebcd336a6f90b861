package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/tigerroll/weatherpipe/internal/metadata"
	"github.com/tigerroll/weatherpipe/internal/metrics"
	"github.com/tigerroll/weatherpipe/internal/support/exception"
	"github.com/tigerroll/weatherpipe/internal/support/logger"
)

// Result is what a stage reports on (non-aborted) completion.
type Result struct {
	Status   metadata.Status
	Counters metadata.Counters
	// DQPassed is set only by the dq stage.
	DQPassed *bool
	// ErrorMessage carries the aggregated non-fatal errors of a
	// COMPLETED_WITH_ERRORS run.
	ErrorMessage string
}

// Stage is one phase of the pipeline, invocable on its own against a batch id.
type Stage interface {
	// Phase returns the phase this stage records metadata under.
	Phase() metadata.Phase
	// Execute runs the stage for the given batch. A returned error means the stage
	// aborted; partial trouble that the stage absorbed is reported via the Result.
	Execute(ctx context.Context, batchID string) (*Result, error)
}

// Runner wraps a stage execution with the two-phase metadata write, the per-stage
// log file, tracing, and metrics.
type Runner struct {
	recorder metadata.Recorder
	metrics  metrics.MetricRecorder
	tracer   metrics.Tracer
	logsDir  string
}

// NewRunner creates a Runner.
func NewRunner(recorder metadata.Recorder, metricRecorder metrics.MetricRecorder, tracer metrics.Tracer, logsDir string) *Runner {
	return &Runner{
		recorder: recorder,
		metrics:  metricRecorder,
		tracer:   tracer,
		logsDir:  logsDir,
	}
}

// RunStage executes one stage for the given batch. The STARTED metadata entry is
// written before the stage body runs; whatever happens afterwards, the entry is
// completed with the outcome. An entry left in STARTED (process killed) is the
// interrupted-phase audit signal.
func (r *Runner) RunStage(ctx context.Context, stage Stage, batchID string) error {
	phase := stage.Phase()

	if _, err := ParseBatchID(batchID); err != nil {
		return exception.NewBatchError(string(phase), "refusing to run with malformed batch id", err, false, false)
	}

	if r.logsDir != "" {
		closer, err := logger.OpenLogFile(r.logsDir, string(phase))
		if err != nil {
			logger.Warnf("Could not open log file for phase '%s': %v", phase, err)
		} else {
			defer closer.Close()
		}
	}

	entry, err := r.recorder.StartPhase(ctx, batchID, phase)
	if err != nil {
		return err
	}
	start := time.Now()
	r.metrics.RecordPhaseStart(ctx, batchID, string(phase))

	spanCtx, finish := r.tracer.StartPhaseSpan(ctx, batchID, string(phase))
	defer finish()

	result, execErr := stage.Execute(spanCtx, batchID)
	if execErr != nil {
		r.tracer.RecordError(spanCtx, string(phase), execErr)
		if exception.IsTemporary(execErr) {
			logger.Warnf("Phase '%s' failed for batch '%s' with a temporary error; the next scheduled batch is the retry: %v", phase, batchID, execErr)
		} else if exception.IsFatal(execErr) {
			logger.Errorf("Phase '%s' failed for batch '%s' with a fatal error: %v", phase, batchID, execErr)
		}
		var counters metadata.Counters
		var dqPassed *bool
		if result != nil {
			counters = result.Counters
			dqPassed = result.DQPassed
		}
		if err := r.recorder.CompletePhase(ctx, entry, metadata.StatusFailed, counters, dqPassed, exception.ExtractErrorMessage(execErr)); err != nil {
			logger.Errorf("Failed to record FAILED status for phase '%s' batch '%s': %v", phase, batchID, err)
		}
		r.metrics.RecordPhaseEnd(ctx, batchID, string(phase), string(metadata.StatusFailed), time.Since(start))
		return exception.NewBatchError(string(phase),
			fmt.Sprintf("phase '%s' failed for batch '%s'", phase, batchID), execErr, false, false)
	}

	if result == nil {
		result = &Result{Status: metadata.StatusCompleted}
	}
	if err := r.recorder.CompletePhase(ctx, entry, result.Status, result.Counters, result.DQPassed, result.ErrorMessage); err != nil {
		return err
	}

	r.tracer.RecordEvent(spanCtx, "phase_completed", map[string]interface{}{
		"batch_id":       batchID,
		"phase":          string(phase),
		"status":         string(result.Status),
		"rows_processed": result.Counters.RowsProcessed,
	})
	r.metrics.RecordPhaseEnd(ctx, batchID, string(phase), string(result.Status), time.Since(start))
	r.metrics.RecordRows(ctx, string(phase), "processed", result.Counters.RowsProcessed)
	r.metrics.RecordRows(ctx, string(phase), "failed", result.Counters.RowsFailed)
	r.metrics.RecordRows(ctx, string(phase), "valid", result.Counters.RowsValid)
	r.metrics.RecordRows(ctx, string(phase), "invalid", result.Counters.RowsInvalid)
	r.metrics.RecordRows(ctx, string(phase), "skipped", result.Counters.RowsSkipped)

	return nil
}
