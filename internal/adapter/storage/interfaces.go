// Package storage defines the common interface for the pipeline's data areas.
// It abstracts object operations so the raw and processed areas can live on
// different backends (local file system today) through a unified API.
package storage

import (
	"context"
	"io"
)

// Adapter defines generic object storage operations over a named area
// (a subdirectory for the local backend, a bucket for an object store).
type Adapter interface {
	// Upload writes data to the specified area and object name.
	// 'contentType' is the MIME type of the data.
	Upload(ctx context.Context, area, objectName string, data io.Reader, contentType string) error
	// Download reads data from the specified area and object name.
	// It returns a ReadCloser which must be closed by the caller after use.
	Download(ctx context.Context, area, objectName string) (io.ReadCloser, error)
	// ListObjects lists objects within the specified area and prefix.
	// The 'fn' callback is called for each object name found.
	ListObjects(ctx context.Context, area, prefix string, fn func(objectName string) error) error
	// DeleteObject deletes the specified object from the area.
	// Deleting a missing object is not an error.
	DeleteObject(ctx context.Context, area, objectName string) error
	// Close releases any resources held by the adapter.
	Close() error
	// Name returns the name of this adapter instance.
	Name() string
}
