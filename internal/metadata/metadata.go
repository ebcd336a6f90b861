// Package metadata records per-phase execution entries into the shared
// pipeline_metadata table. Every phase writes a STARTED row before doing any work
// and updates it in place on completion; a STARTED row with no end time is the
// audit signal for an interrupted phase.
package metadata

import (
	"time"
)

// Phase identifies one stage of the pipeline.
type Phase string

const (
	PhaseIngest  Phase = "ingest"
	PhaseProcess Phase = "process"
	PhaseDQ      Phase = "dq"
	PhaseLoad    Phase = "load"
)

// Status is the terminal (or initial) state of a phase execution.
type Status string

const (
	// StatusStarted marks a phase that has begun and not yet completed.
	StatusStarted Status = "STARTED"
	// StatusCompleted marks a phase that finished without errors.
	StatusCompleted Status = "COMPLETED"
	// StatusCompletedWithErrors marks a phase that finished but skipped some work
	// (failed cities, quarantined rows).
	StatusCompletedWithErrors Status = "COMPLETED_WITH_ERRORS"
	// StatusFailed marks a phase that aborted.
	StatusFailed Status = "FAILED"
)

// Counters carries the row counts a phase reports on completion.
type Counters struct {
	RowsProcessed int64
	RowsFailed    int64
	RowsValid     int64
	RowsInvalid   int64
	RowsSkipped   int64
}

// PipelineMetadata is one phase execution entry.
type PipelineMetadata struct {
	ID            string     `gorm:"column:id;primaryKey"`
	BatchID       string     `gorm:"column:batch_id;not null;uniqueIndex:idx_pipeline_metadata_batch_phase"`
	Phase         string     `gorm:"column:phase;not null;uniqueIndex:idx_pipeline_metadata_batch_phase"`
	StartTime     time.Time  `gorm:"column:start_time;not null"`
	EndTime       *time.Time `gorm:"column:end_time"`
	Status        string     `gorm:"column:status;not null"`
	RowsProcessed int64      `gorm:"column:rows_processed"`
	RowsFailed    int64      `gorm:"column:rows_failed"`
	RowsValid     int64      `gorm:"column:rows_valid"`
	RowsInvalid   int64      `gorm:"column:rows_invalid"`
	RowsSkipped   int64      `gorm:"column:rows_skipped"`
	DQPassed      *bool      `gorm:"column:dq_passed"`
	ErrorMessage  string     `gorm:"column:error_message"`
	InsertedAt    time.Time  `gorm:"column:inserted_at;not null"`
}

// TableName specifies the table name for PipelineMetadata.
func (PipelineMetadata) TableName() string {
	return "pipeline_metadata"
}
