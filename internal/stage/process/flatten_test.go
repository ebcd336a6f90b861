package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
  "location": {
    "name": "London",
    "region": "City of London, Greater London",
    "country": "United Kingdom",
    "localtime": "2026-08-31 6:55"
  },
  "current": {
    "last_updated": "2026-08-31 06:45",
    "temp_c": 21.5,
    "is_day": 1,
    "condition": {"text": "Partly cloudy", "code": 1003},
    "wind_kph": 13.0,
    "wind_dir": "WSW",
    "pressure_mb": 1012.0,
    "precip_mm": 0.0,
    "humidity": 64,
    "feelslike_c": 21.5,
    "windchill_c": 21.0,
    "dewpoint_c": 14.4,
    "gust_kph": 18.7
  }
}`

func TestFlatten(t *testing.T) {
	row, err := Flatten([]byte(sampleDoc), "20260831_060000")
	require.NoError(t, err)

	require.NotNil(t, row.City)
	assert.Equal(t, "London", *row.City)
	require.NotNil(t, row.LocalTime)
	assert.Equal(t, "2026-08-31 6:55", *row.LocalTime)
	require.NotNil(t, row.ConditionDesc)
	assert.Equal(t, "Partly cloudy", *row.ConditionDesc)
	assert.Equal(t, "20260831_060000", row.BatchID)
}

// Numeric values must survive as their literal string forms so the quality rules
// downstream judge datatypes, not this stage.
func TestFlattenKeepsNumbersVerbatim(t *testing.T) {
	row, err := Flatten([]byte(sampleDoc), "20260831_060000")
	require.NoError(t, err)

	require.NotNil(t, row.TemperatureC)
	assert.Equal(t, "21.5", *row.TemperatureC)
	require.NotNil(t, row.PressureMb)
	assert.Equal(t, "1012.0", *row.PressureMb)
	require.NotNil(t, row.Humidity)
	assert.Equal(t, "64", *row.Humidity)
}

func TestFlattenMissingFieldsStayNil(t *testing.T) {
	doc := `{"location": {"name": "Paris"}, "current": {"temp_c": 18.0}}`

	row, err := Flatten([]byte(doc), "20260831_060000")
	require.NoError(t, err)

	require.NotNil(t, row.City)
	assert.Equal(t, "Paris", *row.City)
	assert.Nil(t, row.LocalTime)
	assert.Nil(t, row.ConditionDesc)
	assert.Nil(t, row.WindKph)
	assert.Equal(t, "20260831_060000", row.BatchID)
}

func TestFlattenMissingSections(t *testing.T) {
	row, err := Flatten([]byte(`{"error": {"code": 1006}}`), "20260831_060000")
	require.NoError(t, err)

	assert.Nil(t, row.City)
	assert.Nil(t, row.TemperatureC)
	assert.Equal(t, "20260831_060000", row.BatchID)
}

func TestFlattenMalformedDocument(t *testing.T) {
	_, err := Flatten([]byte(`{"location": `), "20260831_060000")
	assert.Error(t, err)
}

func TestFlattenNonStringScalars(t *testing.T) {
	doc := `{"location": {"name": "Oslo"}, "current": {"wind_dir": true, "condition": {"text": 42}}}`

	row, err := Flatten([]byte(doc), "20260831_060000")
	require.NoError(t, err)

	require.NotNil(t, row.WindDir)
	assert.Equal(t, "true", *row.WindDir)
	require.NotNil(t, row.ConditionDesc)
	assert.Equal(t, "42", *row.ConditionDesc)
}
