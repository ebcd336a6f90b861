package dq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/weatherpipe/internal/domain/entity"
)

const testBatchID = "20260831_060000"

// goodRow returns an observation that passes every rule.
func goodRow(city, localTime string) entity.FlatObservation {
	return entity.FlatObservation{
		City:          ptr(city),
		LocalTime:     ptr(localTime),
		LastUpdated:   ptr("2026-08-31 05:45"),
		TemperatureC:  ptr("21.5"),
		ConditionDesc: ptr("Partly cloudy"),
		WindKph:       ptr("13.0"),
		WindDir:       ptr("WSW"),
		PressureMb:    ptr("1012.0"),
		PrecipMm:      ptr("0.0"),
		Humidity:      ptr("64"),
		FeelslikeC:    ptr("21.5"),
		WindchillC:    ptr("21.0"),
		DewpointC:     ptr("14.4"),
		GustKph:       ptr("18.7"),
		BatchID:       testBatchID,
	}
}

func ptr(s string) *string {
	return &s
}

func testMaxTimestamp() time.Time {
	// Batch time plus the default 48h skew allowance.
	return time.Date(2026, 8, 31, 6, 0, 0, 0, time.UTC).Add(48 * time.Hour)
}

func TestCheckAllValid(t *testing.T) {
	rows := []entity.FlatObservation{
		goodRow("London", "2026-08-31 05:50"),
		goodRow("Paris", "2026-08-31 06:50"),
	}

	verdict := NewChecker(testMaxTimestamp()).Check(rows)

	assert.Len(t, verdict.Valid, 2)
	assert.Empty(t, verdict.Invalid)
}

func TestCheckNullFields(t *testing.T) {
	missing := goodRow("London", "2026-08-31 05:50")
	missing.WindDir = nil
	blank := goodRow("Paris", "2026-08-31 05:50")
	blank.ConditionDesc = ptr("   ")

	verdict := NewChecker(testMaxTimestamp()).Check([]entity.FlatObservation{missing, blank})

	require.Len(t, verdict.Invalid, 2)
	assert.Equal(t, RuleNullFields, verdict.Invalid[0].DQType)
	assert.Equal(t, RuleNullFields, verdict.Invalid[1].DQType)
}

func TestCheckDuplicateFirstOccurrenceWins(t *testing.T) {
	first := goodRow("London", "2026-08-31 05:50")
	second := goodRow("London", "2026-08-31 05:50")
	other := goodRow("London", "2026-08-31 06:50")

	verdict := NewChecker(testMaxTimestamp()).Check([]entity.FlatObservation{first, second, other})

	require.Len(t, verdict.Valid, 2)
	require.Len(t, verdict.Invalid, 1)
	assert.Equal(t, RuleDuplicateFields, verdict.Invalid[0].DQType)
}

// A row can fail at most one rule; the null check outranks the duplicate check,
// but the dirty row's key is still registered, so its later clean twin is a
// duplicate, not a first occurrence.
func TestCheckRuleOrderAndKeyRegistration(t *testing.T) {
	dirty := goodRow("London", "2026-08-31 05:50")
	dirty.Humidity = nil
	cleanTwin := goodRow("London", "2026-08-31 05:50")

	verdict := NewChecker(testMaxTimestamp()).Check([]entity.FlatObservation{dirty, cleanTwin})

	require.Len(t, verdict.Invalid, 2)
	assert.Equal(t, RuleNullFields, verdict.Invalid[0].DQType)
	assert.Equal(t, RuleDuplicateFields, verdict.Invalid[1].DQType)
	assert.Empty(t, verdict.Valid)
}

func TestCheckBadDatatypes(t *testing.T) {
	badFloat := goodRow("London", "2026-08-31 05:50")
	badFloat.TemperatureC = ptr("warm")
	badInt := goodRow("Paris", "2026-08-31 05:50")
	badInt.Humidity = ptr("64.5")

	verdict := NewChecker(testMaxTimestamp()).Check([]entity.FlatObservation{badFloat, badInt})

	require.Len(t, verdict.Invalid, 2)
	assert.Equal(t, RuleBadDatatypes, verdict.Invalid[0].DQType)
	assert.Equal(t, RuleBadDatatypes, verdict.Invalid[1].DQType)
}

func TestCheckBadTimestamps(t *testing.T) {
	unparseable := goodRow("London", "2026-08-31T05:50:00Z")
	tooOld := goodRow("Paris", "1899-12-31 23:59")
	tooNew := goodRow("Berlin", "2026-09-03 00:00") // past batch time + 48h
	justInside := goodRow("Madrid", "2026-09-02 05:59")

	verdict := NewChecker(testMaxTimestamp()).Check([]entity.FlatObservation{unparseable, tooOld, tooNew, justInside})

	require.Len(t, verdict.Invalid, 3)
	for _, row := range verdict.Invalid {
		assert.Equal(t, RuleBadTimestamps, row.DQType)
	}
	require.Len(t, verdict.Valid, 1)
	assert.Equal(t, "Madrid", verdict.Valid[0].City)
}

// last_updated is range-bounded too: a parseable but ancient or far-future value
// must not reach the staging table.
func TestCheckBadLastUpdated(t *testing.T) {
	ancient := goodRow("London", "2026-08-31 05:50")
	ancient.LastUpdated = ptr("1850-01-01 00:00")
	future := goodRow("Paris", "2026-08-31 05:50")
	future.LastUpdated = ptr("2026-09-03 00:00")
	unparseable := goodRow("Berlin", "2026-08-31 05:50")
	unparseable.LastUpdated = ptr("31/08/2026 05:45")

	verdict := NewChecker(testMaxTimestamp()).Check([]entity.FlatObservation{ancient, future, unparseable})

	require.Len(t, verdict.Invalid, 3)
	for _, row := range verdict.Invalid {
		assert.Equal(t, RuleBadTimestamps, row.DQType)
	}
	assert.Empty(t, verdict.Valid)
}

func TestCheckCountsAlwaysAddUp(t *testing.T) {
	rows := []entity.FlatObservation{
		goodRow("London", "2026-08-31 05:50"),
		goodRow("London", "2026-08-31 05:50"),
		goodRow("Paris", "2026-08-31 05:50"),
	}
	rows[2].WindKph = ptr("breezy")

	verdict := NewChecker(testMaxTimestamp()).Check(rows)

	assert.Equal(t, len(rows), len(verdict.Valid)+len(verdict.Invalid))
}

func TestToValidParsesTypedColumns(t *testing.T) {
	row := goodRow("London", "2026-08-31 05:50")

	verdict := NewChecker(testMaxTimestamp()).Check([]entity.FlatObservation{row})

	require.Len(t, verdict.Valid, 1)
	valid := verdict.Valid[0]
	assert.Equal(t, "London", valid.City)
	assert.Equal(t, time.Date(2026, 8, 31, 5, 50, 0, 0, time.UTC), valid.LocalTime)
	assert.Equal(t, 21.5, valid.TemperatureC)
	assert.Equal(t, 64, valid.Humidity)
	assert.Equal(t, testBatchID, valid.BatchID)
}

func TestToInvalidPreservesLooseValues(t *testing.T) {
	row := goodRow("London", "2026-08-31 05:50")
	row.TemperatureC = ptr("warm")

	verdict := NewChecker(testMaxTimestamp()).Check([]entity.FlatObservation{row})

	require.Len(t, verdict.Invalid, 1)
	invalid := verdict.Invalid[0]
	require.NotNil(t, invalid.TemperatureC)
	assert.Equal(t, "warm", *invalid.TemperatureC)
	assert.Equal(t, testBatchID, invalid.BatchID)
}
