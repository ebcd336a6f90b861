package ingest

import (
	"bytes"
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/weatherpipe/internal/adapter/storage"
	"github.com/tigerroll/weatherpipe/internal/config"
	"github.com/tigerroll/weatherpipe/internal/metadata"
	"github.com/tigerroll/weatherpipe/internal/pipeline"
	"github.com/tigerroll/weatherpipe/internal/support/exception"
	"github.com/tigerroll/weatherpipe/internal/support/logger"
)

// RawArea is the storage area raw provider responses land in.
const RawArea = "raw"

// RawObjectName returns the raw-area object name for one city's response.
func RawObjectName(citySlug, batchID string) string {
	return fmt.Sprintf("%s_weather_%s.json", citySlug, batchID)
}

// Stage is the ingest phase: fetch every configured city sequentially and persist
// each raw body. A failed city is logged and skipped; it never aborts the stage,
// so one flaky provider response cannot sink the whole batch. Nothing is retried
// within a run; the next scheduled batch is the retry.
type Stage struct {
	client *Client
	store  storage.Adapter
	cities []config.CityConfig
}

// NewStage creates the ingest stage.
func NewStage(client *Client, store storage.Adapter, cities []config.CityConfig) *Stage {
	return &Stage{client: client, store: store, cities: cities}
}

// Phase returns the phase this stage records metadata under.
func (s *Stage) Phase() metadata.Phase {
	return metadata.PhaseIngest
}

// Execute fetches and persists all cities for the batch.
func (s *Stage) Execute(ctx context.Context, batchID string) (*pipeline.Result, error) {
	var merr error
	var succeeded, failed int64

	for _, city := range s.cities {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, err := s.client.FetchCurrent(ctx, city)
		if err != nil {
			failed++
			merr = multierror.Append(merr, err)
			logger.Warnf("Skipping city '%s' for batch '%s': %v", city.Name, batchID, err)
			continue
		}

		objectName := RawObjectName(city.Slug(), batchID)
		if err := s.store.Upload(ctx, RawArea, objectName, bytes.NewReader(body), "application/json"); err != nil {
			failed++
			merr = multierror.Append(merr, exception.NewBatchError(moduleName,
				fmt.Sprintf("failed to persist raw response for city '%s'", city.Name), err, true, false))
			logger.Warnf("Skipping city '%s' for batch '%s': persist failed: %v", city.Name, batchID, err)
			continue
		}

		succeeded++
		logger.Infof("Ingested city '%s' for batch '%s' (%d bytes).", city.Name, batchID, len(body))
	}

	status := metadata.StatusCompleted
	switch {
	case failed > 0 && succeeded > 0:
		status = metadata.StatusCompletedWithErrors
	case failed > 0 && succeeded == 0:
		// Every city failed. The stage itself still completes (exit 0); the batch
		// has no raw files and will fail at the dq phase.
		status = metadata.StatusFailed
	}

	return &pipeline.Result{
		Status:       status,
		Counters:     metadata.Counters{RowsProcessed: succeeded, RowsFailed: failed},
		ErrorMessage: exception.ExtractErrorMessage(merr),
	}, nil
}
