package local_test

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/weatherpipe/internal/adapter/storage/local"
)

func TestUploadAndDownload(t *testing.T) {
	adapter, err := local.NewLocalAdapter(t.TempDir(), "test")
	require.NoError(t, err)
	defer adapter.Close()
	ctx := context.Background()

	payload := []byte(`{"city": "London"}`)
	err = adapter.Upload(ctx, "raw", "london_weather_20260831_060000.json", bytes.NewReader(payload), "application/json")
	require.NoError(t, err)

	rc, err := adapter.Download(ctx, "raw", "london_weather_20260831_060000.json")
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestUploadCreatesNestedDirectories(t *testing.T) {
	adapter, err := local.NewLocalAdapter(t.TempDir(), "test")
	require.NoError(t, err)
	ctx := context.Background()

	err = adapter.Upload(ctx, "processed", "20260831_060000/data_001.parquet", strings.NewReader("x"), "application/octet-stream")
	require.NoError(t, err)

	rc, err := adapter.Download(ctx, "processed", "20260831_060000/data_001.parquet")
	require.NoError(t, err)
	rc.Close()
}

func TestListObjectsWithPrefix(t *testing.T) {
	adapter, err := local.NewLocalAdapter(t.TempDir(), "test")
	require.NoError(t, err)
	ctx := context.Background()

	for _, name := range []string{
		"20260831_060000/data_001.parquet",
		"20260831_060000/data_002.parquet",
		"20260830_060000/data_001.parquet",
	} {
		require.NoError(t, adapter.Upload(ctx, "processed", name, strings.NewReader("x"), ""))
	}

	var names []string
	err = adapter.ListObjects(ctx, "processed", "20260831_060000/", func(objectName string) error {
		names = append(names, objectName)
		return nil
	})
	require.NoError(t, err)
	sort.Strings(names)

	assert.Equal(t, []string{
		"20260831_060000/data_001.parquet",
		"20260831_060000/data_002.parquet",
	}, names)
}

func TestListObjectsMissingAreaYieldsNothing(t *testing.T) {
	adapter, err := local.NewLocalAdapter(t.TempDir(), "test")
	require.NoError(t, err)

	called := false
	err = adapter.ListObjects(context.Background(), "no-such-area", "", func(string) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestDeleteObject(t *testing.T) {
	adapter, err := local.NewLocalAdapter(t.TempDir(), "test")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, adapter.Upload(ctx, "", "dq_pass.flag", strings.NewReader("x"), "text/plain"))
	require.NoError(t, adapter.DeleteObject(ctx, "", "dq_pass.flag"))

	_, err = adapter.Download(ctx, "", "dq_pass.flag")
	assert.Error(t, err)

	// Deleting an already absent object is not an error.
	assert.NoError(t, adapter.DeleteObject(ctx, "", "dq_pass.flag"))
}

func TestPathEscapeIsRejected(t *testing.T) {
	adapter, err := local.NewLocalAdapter(t.TempDir(), "test")
	require.NoError(t, err)
	ctx := context.Background()

	err = adapter.Upload(ctx, "raw", "../../outside.json", strings.NewReader("x"), "")
	assert.Error(t, err)

	_, err = adapter.Download(ctx, "..", "somefile")
	assert.Error(t, err)
}

// A sibling of the base directory sharing its name as a prefix is still outside.
func TestPathEscapeToSiblingDirIsRejected(t *testing.T) {
	baseDir := t.TempDir()
	adapter, err := local.NewLocalAdapter(baseDir, "test")
	require.NoError(t, err)
	ctx := context.Background()

	sibling := "../" + filepath.Base(baseDir) + "-evil/outside.json"
	err = adapter.Upload(ctx, "raw", "../"+sibling, strings.NewReader("x"), "")
	assert.Error(t, err)

	_, err = adapter.Download(ctx, "", sibling)
	assert.Error(t, err)
}

func TestNewLocalAdapterRequiresBaseDir(t *testing.T) {
	_, err := local.NewLocalAdapter("", "test")
	assert.Error(t, err)
}
