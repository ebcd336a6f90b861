package metadata

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tigerroll/weatherpipe/internal/support/exception"
	"github.com/tigerroll/weatherpipe/internal/support/logger"
)

const moduleName = "metadata"

// Recorder persists phase execution entries.
type Recorder interface {
	// StartPhase writes (or, on a re-run, resets) the STARTED entry for the given
	// batch and phase, and returns it for later completion.
	StartPhase(ctx context.Context, batchID string, phase Phase) (*PipelineMetadata, error)
	// CompletePhase stamps the end time, terminal status, counters, and the
	// DQ verdict / error message onto the entry written by StartPhase.
	CompletePhase(ctx context.Context, entry *PipelineMetadata, status Status, counters Counters, dqPassed *bool, errorMessage string) error
	// FindByBatch returns all phase entries recorded for a batch, ordered by start time.
	FindByBatch(ctx context.Context, batchID string) ([]PipelineMetadata, error)
}

// gormRecorder implements Recorder over a GORM connection.
type gormRecorder struct {
	db *gorm.DB
}

// NewRecorder creates a Recorder backed by the given GORM connection.
func NewRecorder(db *gorm.DB) Recorder {
	return &gormRecorder{db: db}
}

// StartPhase inserts the STARTED entry for (batchID, phase). A re-run of the same
// phase resets the existing entry instead of failing on the unique index, so the
// freshest attempt is the one on record.
func (r *gormRecorder) StartPhase(ctx context.Context, batchID string, phase Phase) (*PipelineMetadata, error) {
	now := time.Now().UTC()
	entry := &PipelineMetadata{
		ID:         uuid.NewString(),
		BatchID:    batchID,
		Phase:      string(phase),
		StartTime:  now,
		Status:     string(StatusStarted),
		InsertedAt: now,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "batch_id"}, {Name: "phase"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"start_time":     entry.StartTime,
			"end_time":       nil,
			"status":         string(StatusStarted),
			"rows_processed": 0,
			"rows_failed":    0,
			"rows_valid":     0,
			"rows_invalid":   0,
			"rows_skipped":   0,
			"dq_passed":      nil,
			"error_message":  "",
			"inserted_at":    entry.InsertedAt,
		}),
	}).Create(entry).Error
	if err != nil {
		return nil, exception.NewBatchError(moduleName,
			fmt.Sprintf("failed to record phase start for batch '%s' phase '%s'", batchID, phase), err, false, false)
	}

	logger.Infof("Phase '%s' started for batch '%s'.", phase, batchID)
	return entry, nil
}

// CompletePhase updates the entry written by StartPhase in place.
func (r *gormRecorder) CompletePhase(ctx context.Context, entry *PipelineMetadata, status Status, counters Counters, dqPassed *bool, errorMessage string) error {
	if entry == nil {
		return exception.NewBatchErrorf(moduleName, "cannot complete a nil phase entry")
	}
	end := time.Now().UTC()

	err := r.db.WithContext(ctx).
		Model(&PipelineMetadata{}).
		Where("batch_id = ? AND phase = ?", entry.BatchID, entry.Phase).
		Updates(map[string]interface{}{
			"end_time":       end,
			"status":         string(status),
			"rows_processed": counters.RowsProcessed,
			"rows_failed":    counters.RowsFailed,
			"rows_valid":     counters.RowsValid,
			"rows_invalid":   counters.RowsInvalid,
			"rows_skipped":   counters.RowsSkipped,
			"dq_passed":      dqPassed,
			"error_message":  errorMessage,
		}).Error
	if err != nil {
		return exception.NewBatchError(moduleName,
			fmt.Sprintf("failed to record phase end for batch '%s' phase '%s'", entry.BatchID, entry.Phase), err, false, false)
	}

	entry.EndTime = &end
	entry.Status = string(status)
	entry.RowsProcessed = counters.RowsProcessed
	entry.RowsFailed = counters.RowsFailed
	entry.RowsValid = counters.RowsValid
	entry.RowsInvalid = counters.RowsInvalid
	entry.RowsSkipped = counters.RowsSkipped
	entry.DQPassed = dqPassed
	entry.ErrorMessage = errorMessage

	logger.Infof("Phase '%s' for batch '%s' ended with status %s.", entry.Phase, entry.BatchID, status)
	return nil
}

// FindByBatch returns all phase entries recorded for a batch, ordered by start time.
func (r *gormRecorder) FindByBatch(ctx context.Context, batchID string) ([]PipelineMetadata, error) {
	var entries []PipelineMetadata
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("start_time ASC").
		Find(&entries).Error
	if err != nil {
		return nil, exception.NewBatchError(moduleName,
			fmt.Sprintf("failed to load phase entries for batch '%s'", batchID), err, false, false)
	}
	return entries, nil
}
