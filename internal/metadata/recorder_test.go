package metadata_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	sqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tigerroll/weatherpipe/internal/metadata"
	"github.com/tigerroll/weatherpipe/internal/support/exception"
)

const testBatchID = "20260831_060000"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&metadata.PipelineMetadata{}))
	return db
}

func TestStartPhaseWritesStartedEntry(t *testing.T) {
	ctx := context.Background()
	recorder := metadata.NewRecorder(newTestDB(t))

	entry, err := recorder.StartPhase(ctx, testBatchID, metadata.PhaseIngest)
	require.NoError(t, err)

	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, testBatchID, entry.BatchID)
	assert.Equal(t, string(metadata.PhaseIngest), entry.Phase)
	assert.Equal(t, string(metadata.StatusStarted), entry.Status)
	assert.Nil(t, entry.EndTime)
}

func TestCompletePhaseStampsEntry(t *testing.T) {
	ctx := context.Background()
	recorder := metadata.NewRecorder(newTestDB(t))

	entry, err := recorder.StartPhase(ctx, testBatchID, metadata.PhaseDQ)
	require.NoError(t, err)

	passed := false
	counters := metadata.Counters{RowsProcessed: 10, RowsValid: 8, RowsInvalid: 2}
	err = recorder.CompletePhase(ctx, entry, metadata.StatusCompletedWithErrors, counters, &passed, "2 rows quarantined")
	require.NoError(t, err)

	entries, err := recorder.FindByBatch(ctx, testBatchID)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.Equal(t, string(metadata.StatusCompletedWithErrors), got.Status)
	assert.NotNil(t, got.EndTime)
	assert.Equal(t, int64(10), got.RowsProcessed)
	assert.Equal(t, int64(8), got.RowsValid)
	assert.Equal(t, int64(2), got.RowsInvalid)
	require.NotNil(t, got.DQPassed)
	assert.False(t, *got.DQPassed)
	assert.Equal(t, "2 rows quarantined", got.ErrorMessage)
}

// Re-running a phase resets the existing (batch, phase) entry instead of failing
// on the unique index. A STARTED row with no end time is how an interrupted phase
// shows up in the audit trail.
func TestStartPhaseResetsOnRerun(t *testing.T) {
	ctx := context.Background()
	recorder := metadata.NewRecorder(newTestDB(t))

	entry, err := recorder.StartPhase(ctx, testBatchID, metadata.PhaseLoad)
	require.NoError(t, err)
	passed := true
	err = recorder.CompletePhase(ctx, entry, metadata.StatusCompleted, metadata.Counters{RowsProcessed: 5}, &passed, "")
	require.NoError(t, err)

	_, err = recorder.StartPhase(ctx, testBatchID, metadata.PhaseLoad)
	require.NoError(t, err)

	entries, err := recorder.FindByBatch(ctx, testBatchID)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.Equal(t, string(metadata.StatusStarted), got.Status)
	assert.Nil(t, got.EndTime)
	assert.Equal(t, int64(0), got.RowsProcessed)
	assert.Nil(t, got.DQPassed)
	assert.Empty(t, got.ErrorMessage)
}

func TestFindByBatchOrdersByStartTime(t *testing.T) {
	ctx := context.Background()
	recorder := metadata.NewRecorder(newTestDB(t))

	for _, phase := range []metadata.Phase{metadata.PhaseIngest, metadata.PhaseProcess, metadata.PhaseDQ, metadata.PhaseLoad} {
		_, err := recorder.StartPhase(ctx, testBatchID, phase)
		require.NoError(t, err)
	}
	// Another batch must not leak in.
	_, err := recorder.StartPhase(ctx, "20260830_060000", metadata.PhaseIngest)
	require.NoError(t, err)

	entries, err := recorder.FindByBatch(ctx, testBatchID)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, string(metadata.PhaseIngest), entries[0].Phase)
	assert.Equal(t, string(metadata.PhaseLoad), entries[3].Phase)
}

func TestCompletePhaseNilEntry(t *testing.T) {
	recorder := metadata.NewRecorder(newTestDB(t))

	err := recorder.CompletePhase(context.Background(), nil, metadata.StatusCompleted, metadata.Counters{}, nil, "")
	assert.Error(t, err)
	assert.True(t, exception.IsBatchError(err))
}

// Database failures surface as BatchErrors, not raw driver errors.
func TestStartPhaseDatabaseError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `pipeline_metadata`").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	recorder := metadata.NewRecorder(gormDB)
	_, err = recorder.StartPhase(context.Background(), testBatchID, metadata.PhaseIngest)

	require.Error(t, err)
	assert.True(t, exception.IsBatchError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
