package pipeline_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/weatherpipe/internal/pipeline"
)

func TestNewBatchID(t *testing.T) {
	ts := time.Date(2026, 8, 31, 6, 0, 0, 0, time.UTC)
	assert.Equal(t, "20260831_060000", pipeline.NewBatchID(ts))
}

func TestParseBatchID(t *testing.T) {
	parsed, err := pipeline.ParseBatchID("20260831_060000")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 31, 6, 0, 0, 0, time.UTC), parsed)
}

func TestParseBatchIDRejectsMalformedIDs(t *testing.T) {
	malformed := []string{
		"",
		"20260831",
		"2026-08-31_060000",
		"20260831_0600",
		"20261331_060000", // month 13
		"../../etc/passwd",
	}
	for _, id := range malformed {
		_, err := pipeline.ParseBatchID(id)
		assert.Error(t, err, "id %q should be rejected", id)
	}
}
