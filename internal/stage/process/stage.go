package process

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	parquetwriter "github.com/tigerroll/weatherpipe/internal/component/parquet"

	"github.com/tigerroll/weatherpipe/internal/adapter/storage"
	"github.com/tigerroll/weatherpipe/internal/domain/entity"
	"github.com/tigerroll/weatherpipe/internal/metadata"
	"github.com/tigerroll/weatherpipe/internal/pipeline"
	"github.com/tigerroll/weatherpipe/internal/stage/ingest"
	"github.com/tigerroll/weatherpipe/internal/support/exception"
	"github.com/tigerroll/weatherpipe/internal/support/logger"
)

// ProcessedArea is the storage area the flattened Parquet partitions land in.
const ProcessedArea = "processed"

// Stage is the process phase: list the batch's raw documents, flatten each into a
// FlatObservation, and write the union as one Parquet partition named after the
// batch id. Malformed documents are skipped with a warning.
type Stage struct {
	store       storage.Adapter
	compression string
}

// NewStage creates the process stage.
func NewStage(store storage.Adapter, compression string) *Stage {
	return &Stage{store: store, compression: compression}
}

// Phase returns the phase this stage records metadata under.
func (s *Stage) Phase() metadata.Phase {
	return metadata.PhaseProcess
}

// Execute flattens the batch's raw documents into the processed partition.
func (s *Stage) Execute(ctx context.Context, batchID string) (*pipeline.Result, error) {
	suffix := fmt.Sprintf("_weather_%s.json", batchID)

	var names []string
	err := s.store.ListObjects(ctx, ingest.RawArea, "", func(objectName string) error {
		if strings.HasSuffix(objectName, suffix) {
			names = append(names, objectName)
		}
		return nil
	})
	if err != nil {
		return nil, exception.NewBatchError(moduleName,
			fmt.Sprintf("failed to list raw documents for batch '%s'", batchID), err, false, false)
	}
	// Deterministic input order, so re-runs flatten identically.
	sort.Strings(names)

	if len(names) == 0 {
		logger.Warnf("No raw documents found for batch '%s'; writing no processed partition.", batchID)
		return &pipeline.Result{Status: metadata.StatusCompleted}, nil
	}

	var rows []entity.FlatObservation
	var skipped int64
	for _, name := range names {
		doc, err := s.readRaw(ctx, name)
		if err != nil {
			skipped++
			logger.Warnf("Skipping raw document '%s': %v", name, err)
			continue
		}
		row, err := Flatten(doc, batchID)
		if err != nil {
			skipped++
			logger.Warnf("Skipping raw document '%s': %v", name, err)
			continue
		}
		rows = append(rows, row)
	}

	writer, err := parquetwriter.NewWriter(
		"process", ProcessedArea, "", s.compression,
		s.store,
		new(entity.FlatObservation),
		func(row entity.FlatObservation) (string, error) { return row.BatchID, nil },
	)
	if err != nil {
		return nil, err
	}
	if err := writer.Write(ctx, rows); err != nil {
		return nil, err
	}
	if err := writer.Close(ctx); err != nil {
		return nil, exception.NewBatchError(moduleName,
			fmt.Sprintf("failed to write processed partition for batch '%s'", batchID), err, false, false)
	}

	status := metadata.StatusCompleted
	var errMsg string
	if skipped > 0 {
		status = metadata.StatusCompletedWithErrors
		errMsg = fmt.Sprintf("%d raw documents were malformed and skipped", skipped)
	}
	logger.Infof("Processed %d observations (%d documents skipped) for batch '%s'.", len(rows), skipped, batchID)

	return &pipeline.Result{
		Status:       status,
		Counters:     metadata.Counters{RowsProcessed: int64(len(rows)), RowsFailed: skipped},
		ErrorMessage: errMsg,
	}, nil
}

func (s *Stage) readRaw(ctx context.Context, objectName string) ([]byte, error) {
	rc, err := s.store.Download(ctx, ingest.RawArea, objectName)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
