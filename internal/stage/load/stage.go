// Package load promotes the batch's staged observations into the public weather
// table with conflict-free semantics, so repeated loads are idempotent.
package load

import (
	"context"
	"fmt"

	"github.com/tigerroll/weatherpipe/internal/metadata"
	"github.com/tigerroll/weatherpipe/internal/pipeline"
	"github.com/tigerroll/weatherpipe/internal/repository"
	"github.com/tigerroll/weatherpipe/internal/support/logger"
)

// Stage is the load phase.
type Stage struct {
	repo repository.WarehouseRepository
}

// NewStage creates the load stage.
func NewStage(repo repository.WarehouseRepository) *Stage {
	return &Stage{repo: repo}
}

// Phase returns the phase this stage records metadata under.
func (s *Stage) Phase() metadata.Phase {
	return metadata.PhaseLoad
}

// Execute promotes the batch's staging rows. Rows whose (city, local_time) key
// already exists in the public table are counted as skipped, not errors.
func (s *Stage) Execute(ctx context.Context, batchID string) (*pipeline.Result, error) {
	attempted, inserted, err := s.repo.PromoteBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	skipped := attempted - inserted
	if attempted == 0 {
		logger.Warnf("No staging rows found for batch '%s'; nothing to load.", batchID)
	} else {
		logger.Infof("Loaded batch '%s': %d attempted, %d inserted, %d already present.",
			batchID, attempted, inserted, skipped)
	}

	var errMsg string
	if skipped > 0 {
		errMsg = fmt.Sprintf("%d rows already present in the public table", skipped)
	}

	return &pipeline.Result{
		Status: metadata.StatusCompleted,
		Counters: metadata.Counters{
			RowsProcessed: inserted,
			RowsSkipped:   skipped,
		},
		ErrorMessage: errMsg,
	}, nil
}
