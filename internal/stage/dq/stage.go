package dq

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/tigerroll/weatherpipe/internal/adapter/storage"
	"github.com/tigerroll/weatherpipe/internal/config"
	"github.com/tigerroll/weatherpipe/internal/domain/entity"
	"github.com/tigerroll/weatherpipe/internal/metadata"
	"github.com/tigerroll/weatherpipe/internal/pipeline"
	"github.com/tigerroll/weatherpipe/internal/repository"
	"github.com/tigerroll/weatherpipe/internal/stage/process"
	"github.com/tigerroll/weatherpipe/internal/support/exception"
	"github.com/tigerroll/weatherpipe/internal/support/logger"
)

// Stage is the dq phase: read the batch's processed partition, apply the quality
// rules, persist the verdict to staging and quarantine, and emit the report
// artifacts. A missing processed partition is a stage failure: a batch that
// ingested nothing dies here, not silently downstream.
type Stage struct {
	dataStore storage.Adapter
	repo      repository.WarehouseRepository
	reporter  *Reporter
	dqConfig  config.DQConfig
}

// NewStage creates the dq stage.
func NewStage(dataStore storage.Adapter, repo repository.WarehouseRepository, reporter *Reporter, dqConfig config.DQConfig) *Stage {
	return &Stage{dataStore: dataStore, repo: repo, reporter: reporter, dqConfig: dqConfig}
}

// Phase returns the phase this stage records metadata under.
func (s *Stage) Phase() metadata.Phase {
	return metadata.PhaseDQ
}

// Execute checks the batch's processed observations.
func (s *Stage) Execute(ctx context.Context, batchID string) (*pipeline.Result, error) {
	batchTime, err := pipeline.ParseBatchID(batchID)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "invalid batch id", err, false, false)
	}

	rows, err := s.readProcessedPartition(ctx, batchID)
	if err != nil {
		return nil, err
	}

	maxTimestamp := batchTime.Add(time.Duration(s.dqConfig.MaxClockSkewHours) * time.Hour)
	verdict := NewChecker(maxTimestamp).Check(rows)

	// Clear any earlier verdict for this batch so a re-run replaces it instead of
	// doubling it.
	if err := s.repo.PurgeBatch(ctx, batchID); err != nil {
		return nil, err
	}
	if err := s.repo.InsertValid(ctx, verdict.Valid); err != nil {
		return nil, err
	}
	if err := s.repo.InsertInvalid(ctx, verdict.Invalid); err != nil {
		return nil, err
	}

	passed := len(verdict.Invalid) == 0
	if passed {
		if err := s.reporter.WritePassFlag(ctx, batchID); err != nil {
			return nil, err
		}
	} else {
		if err := s.reporter.WriteInvalidReport(ctx, verdict.Invalid); err != nil {
			return nil, err
		}
	}

	logger.Infof("DQ for batch '%s': %d examined, %d valid, %d invalid.",
		batchID, len(rows), len(verdict.Valid), len(verdict.Invalid))

	status := metadata.StatusCompleted
	var errMsg string
	if !passed {
		status = metadata.StatusCompletedWithErrors
		errMsg = fmt.Sprintf("%d rows quarantined", len(verdict.Invalid))
	}

	return &pipeline.Result{
		Status: status,
		Counters: metadata.Counters{
			RowsProcessed: int64(len(rows)),
			RowsValid:     int64(len(verdict.Valid)),
			RowsInvalid:   int64(len(verdict.Invalid)),
		},
		DQPassed:     &passed,
		ErrorMessage: errMsg,
	}, nil
}

// readProcessedPartition loads every Parquet file of the batch's partition.
// Files are read in name order so duplicate detection is deterministic.
func (s *Stage) readProcessedPartition(ctx context.Context, batchID string) ([]entity.FlatObservation, error) {
	var names []string
	err := s.dataStore.ListObjects(ctx, process.ProcessedArea, batchID+"/", func(objectName string) error {
		if strings.HasSuffix(objectName, ".parquet") {
			names = append(names, objectName)
		}
		return nil
	})
	if err != nil {
		return nil, exception.NewBatchError(moduleName,
			fmt.Sprintf("failed to list processed partition for batch '%s'", batchID), err, false, false)
	}
	if len(names) == 0 {
		return nil, exception.NewBatchErrorf(moduleName,
			"no processed partition found for batch '%s'; run the process phase first", batchID)
	}
	sort.Strings(names)

	var rows []entity.FlatObservation
	for _, name := range names {
		fileRows, err := s.readParquetFile(ctx, name)
		if err != nil {
			return nil, err
		}
		rows = append(rows, fileRows...)
	}
	return rows, nil
}

func (s *Stage) readParquetFile(ctx context.Context, objectName string) ([]entity.FlatObservation, error) {
	rc, err := s.dataStore.Download(ctx, process.ProcessedArea, objectName)
	if err != nil {
		return nil, exception.NewBatchError(moduleName,
			fmt.Sprintf("failed to download processed file '%s'", objectName), err, false, false)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, exception.NewBatchError(moduleName,
			fmt.Sprintf("failed to read processed file '%s'", objectName), err, false, false)
	}

	fr := buffer.NewBufferFileFromBytes(data)
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(entity.FlatObservation), 1)
	if err != nil {
		return nil, exception.NewBatchError(moduleName,
			fmt.Sprintf("failed to open parquet reader for '%s'", objectName), err, false, false)
	}
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	rows := make([]entity.FlatObservation, num)
	if num > 0 {
		if err := pr.Read(&rows); err != nil {
			return nil, exception.NewBatchError(moduleName,
				fmt.Sprintf("failed to read parquet rows from '%s'", objectName), err, false, false)
		}
	}
	return rows, nil
}
