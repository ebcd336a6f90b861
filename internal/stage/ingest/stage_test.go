package ingest_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/weatherpipe/internal/adapter/storage/local"
	"github.com/tigerroll/weatherpipe/internal/config"
	"github.com/tigerroll/weatherpipe/internal/metadata"
	"github.com/tigerroll/weatherpipe/internal/stage/ingest"
	"github.com/tigerroll/weatherpipe/internal/support/exception"
)

const testBatchID = "20260831_060000"

var testCities = []config.CityConfig{
	{Name: "London", Latitude: 51.5074, Longitude: -0.1278},
	{Name: "New York", Latitude: 40.7128, Longitude: -74.0060},
}

// newTestClient points a provider client at the given test server.
func newTestClient(serverURL string) *ingest.Client {
	return ingest.NewClient(config.APIConfig{
		Endpoint:       serverURL,
		Key:            "test-key",
		TimeoutSeconds: 5,
	})
}

func TestFetchCurrent(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `{"location": {"name": "London"}}`)
	}))
	defer server.Close()

	body, err := newTestClient(server.URL).FetchCurrent(context.Background(), testCities[0])
	require.NoError(t, err)

	assert.JSONEq(t, `{"location": {"name": "London"}}`, string(body))
	assert.Contains(t, gotQuery, "key=test-key")
	assert.Contains(t, gotQuery, "q=51.507400%2C-0.127800")
}

func TestFetchCurrentServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchCurrent(context.Background(), testCities[0])
	require.Error(t, err)

	be, ok := err.(*exception.BatchError)
	require.True(t, ok)
	assert.True(t, be.IsSkippable())
	assert.True(t, be.IsRetryable())
}

func TestFetchCurrentClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": 2006}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchCurrent(context.Background(), testCities[0])
	require.Error(t, err)

	be, ok := err.(*exception.BatchError)
	require.True(t, ok)
	assert.True(t, be.IsSkippable())
	// A 4xx will not heal on retry.
	assert.False(t, be.IsRetryable())
}

func TestExecuteAllCitiesSucceed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"current": {"temp_c": 21.5}}`)
	}))
	defer server.Close()

	store, err := local.NewLocalAdapter(t.TempDir(), "data")
	require.NoError(t, err)

	stage := ingest.NewStage(newTestClient(server.URL), store, testCities)
	result, err := stage.Execute(context.Background(), testBatchID)
	require.NoError(t, err)

	assert.Equal(t, metadata.StatusCompleted, result.Status)
	assert.Equal(t, int64(2), result.Counters.RowsProcessed)
	assert.Equal(t, int64(0), result.Counters.RowsFailed)
	assert.Empty(t, result.ErrorMessage)

	// Raw objects use the slugged city name.
	rc, err := store.Download(context.Background(), ingest.RawArea, "new_york_weather_20260831_060000.json")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"current": {"temp_c": 21.5}}`, string(body))
}

// One failed city is skipped, not fatal: the stage completes with errors and the
// surviving city's raw file is still written.
func TestExecutePartialFailure(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "upstream busy", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"current": {"temp_c": 18.0}}`)
	}))
	defer server.Close()

	store, err := local.NewLocalAdapter(t.TempDir(), "data")
	require.NoError(t, err)

	stage := ingest.NewStage(newTestClient(server.URL), store, testCities)
	result, err := stage.Execute(context.Background(), testBatchID)
	require.NoError(t, err)

	assert.Equal(t, metadata.StatusCompletedWithErrors, result.Status)
	assert.Equal(t, int64(1), result.Counters.RowsProcessed)
	assert.Equal(t, int64(1), result.Counters.RowsFailed)
	assert.NotEmpty(t, result.ErrorMessage)

	_, err = store.Download(context.Background(), ingest.RawArea, "new_york_weather_20260831_060000.json")
	assert.NoError(t, err)
}

// When every city fails, the stage records FAILED but still returns no error:
// the batch has no raw files and dies at the dq phase instead.
func TestExecuteAllCitiesFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	store, err := local.NewLocalAdapter(t.TempDir(), "data")
	require.NoError(t, err)

	stage := ingest.NewStage(newTestClient(server.URL), store, testCities)
	result, err := stage.Execute(context.Background(), testBatchID)
	require.NoError(t, err)

	assert.Equal(t, metadata.StatusFailed, result.Status)
	assert.Equal(t, int64(0), result.Counters.RowsProcessed)
	assert.Equal(t, int64(2), result.Counters.RowsFailed)
}

func TestExecuteHonorsContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	store, err := local.NewLocalAdapter(t.TempDir(), "data")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stage := ingest.NewStage(newTestClient(server.URL), store, testCities)
	_, err = stage.Execute(ctx, testBatchID)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRawObjectName(t *testing.T) {
	assert.Equal(t, "new_york_weather_20260831_060000.json",
		ingest.RawObjectName(config.CityConfig{Name: "New York"}.Slug(), testBatchID))
}
