package pipeline

import (
	"context"

	"github.com/tigerroll/weatherpipe/internal/support/logger"
)

// Orchestrator runs the four stages in strict sequence under one batch id,
// aborting on the first stage failure so later stages never see a half-finished
// predecessor.
type Orchestrator struct {
	runner *Runner
	stages []Stage
}

// NewOrchestrator creates an Orchestrator over the given stages, which must be
// supplied in execution order.
func NewOrchestrator(runner *Runner, stages ...Stage) *Orchestrator {
	return &Orchestrator{runner: runner, stages: stages}
}

// Run executes all stages for the given batch id.
func (o *Orchestrator) Run(ctx context.Context, batchID string) error {
	logger.Infof("Starting orchestrated run for batch '%s'.", batchID)
	for _, stage := range o.stages {
		if err := o.runner.RunStage(ctx, stage, batchID); err != nil {
			logger.Errorf("Orchestrated run for batch '%s' aborted at phase '%s': %v", batchID, stage.Phase(), err)
			return err
		}
	}
	logger.Infof("Orchestrated run for batch '%s' completed.", batchID)
	return nil
}
