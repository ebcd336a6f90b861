// Package parquet provides a buffered, partitioned Parquet writer over the storage
// adapter. Items are buffered in memory by partition key and finalized into one
// Parquet file per partition on Close.
package parquet

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"path"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	parquetfmt "github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/weatherpipe/internal/adapter/storage"
	"github.com/tigerroll/weatherpipe/internal/support/exception"
	"github.com/tigerroll/weatherpipe/internal/support/logger"
)

const moduleName = "parquet"

// Writer buffers items of type T and writes one Parquet file per partition key
// under <area>/<baseDir>/<partitionKey>/ through the storage adapter.
type Writer[T any] struct {
	name        string
	area        string
	baseDir     string
	compression string
	store       storage.Adapter
	// itemPrototype is a pointer to a zero-value instance of the item type, used for
	// Parquet schema reflection.
	itemPrototype *T
	// partitionKeyFunc extracts the partition key (e.g., the batch id) from an item.
	partitionKeyFunc func(T) (string, error)

	bufferedItems        map[string][]T
	totalRecordsBuffered int64
}

// NewWriter creates a new Writer instance.
func NewWriter[T any](
	name, area, baseDir, compression string,
	store storage.Adapter,
	itemPrototype *T,
	partitionKeyFunc func(T) (string, error),
) (*Writer[T], error) {
	if area == "" {
		return nil, exception.NewBatchErrorf(moduleName, "parquet writer '%s' requires a storage area", name)
	}
	if compression == "" {
		compression = "SNAPPY"
	}
	if _, err := getCompressionCodec(compression); err != nil {
		return nil, exception.NewBatchError(moduleName,
			fmt.Sprintf("invalid compression type '%s' for parquet writer '%s'", compression, name), err, false, false)
	}

	return &Writer[T]{
		name:             name,
		area:             area,
		baseDir:          baseDir,
		compression:      compression,
		store:            store,
		itemPrototype:    itemPrototype,
		partitionKeyFunc: partitionKeyFunc,
		bufferedItems:    make(map[string][]T),
	}, nil
}

// Write accumulates items into the internal per-partition buffers.
// No Parquet encoding or storage upload occurs in this method.
func (w *Writer[T]) Write(ctx context.Context, items []T) error {
	for _, item := range items {
		partitionKey, err := w.partitionKeyFunc(item)
		if err != nil {
			return exception.NewBatchError(moduleName,
				fmt.Sprintf("failed to get partition key for item in parquet writer '%s'", w.name), err, false, false)
		}
		w.bufferedItems[partitionKey] = append(w.bufferedItems[partitionKey], item)
		w.totalRecordsBuffered++
	}
	logger.Debugf("Parquet writer '%s' buffered %d items. Total buffered: %d.", w.name, len(items), w.totalRecordsBuffered)
	return nil
}

// Close finalizes all buffered data into Parquet files and uploads them through the
// storage adapter. Errors are aggregated per partition so one bad partition does not
// hide the others.
func (w *Writer[T]) Close(ctx context.Context) error {
	if w.totalRecordsBuffered == 0 {
		logger.Infof("Parquet writer '%s': no records buffered, skipping file generation.", w.name)
		return nil
	}

	compressionCodec, err := getCompressionCodec(w.compression)
	if err != nil {
		return exception.NewBatchError(moduleName,
			fmt.Sprintf("invalid compression type '%s' for parquet writer '%s'", w.compression, w.name), err, false, false)
	}

	var multiErr error

outerLoop:
	for partitionKey, items := range w.bufferedItems {
		logger.Debugf("Parquet writer '%s': processing partition '%s' with %d items.", w.name, partitionKey, len(items))

		buf := new(bytes.Buffer)

		// One row group per file: the row group size equals the buffered item count.
		pw, err := writer.NewParquetWriterFromWriter(buf, w.itemPrototype, int64(len(items)))
		if err != nil {
			multiErr = multierror.Append(multiErr, exception.NewBatchError(moduleName,
				fmt.Sprintf("failed to create parquet writer for partition '%s' in '%s'", partitionKey, w.name), err, false, false))
			continue outerLoop
		}
		pw.CompressionType = compressionCodec

		for _, item := range items {
			if err := pw.Write(item); err != nil {
				multiErr = multierror.Append(multiErr, exception.NewBatchError(moduleName,
					fmt.Sprintf("failed to write item to parquet for partition '%s' in '%s'", partitionKey, w.name), err, false, false))
				continue outerLoop
			}
		}

		// WriteStop can panic inside the library; convert panics to errors.
		func() {
			defer func() {
				if r := recover(); r != nil {
					err := fmt.Errorf("parquet writer panicked during WriteStop for partition '%s' in '%s': %v", partitionKey, w.name, r)
					multiErr = multierror.Append(multiErr, exception.NewBatchError(moduleName, err.Error(), err, false, false))
					logger.Errorf("Parquet writer '%s': recovered from panic during WriteStop: %v", w.name, r)
				}
			}()
			if err := pw.WriteStop(); err != nil {
				multiErr = multierror.Append(multiErr, exception.NewBatchError(moduleName,
					fmt.Sprintf("failed to stop parquet writer for partition '%s' in '%s'", partitionKey, w.name), err, false, false))
			}
		}()

		fileName := fmt.Sprintf("data_%s_%s.parquet", time.Now().Format("20060102150405"), generateRandomString(8))
		objectName := path.Join(w.baseDir, partitionKey, fileName)

		if err := w.store.Upload(ctx, w.area, objectName, buf, "application/octet-stream"); err != nil {
			multiErr = multierror.Append(multiErr, exception.NewBatchError(moduleName,
				fmt.Sprintf("failed to upload parquet file for partition '%s' to '%s' in '%s'", partitionKey, objectName, w.name), err, false, false))
		} else {
			logger.Infof("Parquet writer '%s': uploaded partition '%s' to %s/%s (%d rows).", w.name, partitionKey, w.area, objectName, len(items))
		}
	}

	w.bufferedItems = make(map[string][]T)
	w.totalRecordsBuffered = 0

	return multiErr
}

// getCompressionCodec returns the Parquet compression codec from a string.
func getCompressionCodec(compressionType string) (parquetfmt.CompressionCodec, error) {
	switch strings.ToUpper(compressionType) {
	case "SNAPPY":
		return parquetfmt.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquetfmt.CompressionCodec_GZIP, nil
	case "NONE", "":
		return parquetfmt.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}

// generateRandomString generates a random string of the specified length.
// Used to enhance filename uniqueness.
func generateRandomString(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	seededRand := rand.New(rand.NewSource(time.Now().UnixNano()))
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[seededRand.Intn(len(charset))]
	}
	return string(b)
}
