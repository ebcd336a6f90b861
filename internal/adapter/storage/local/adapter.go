// Package local provides a local file system implementation of the storage adapter.
package local

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	storageAdapter "github.com/tigerroll/weatherpipe/internal/adapter/storage"
	"github.com/tigerroll/weatherpipe/internal/support/logger"
)

// localAdapter implements storage.Adapter over a base directory; areas map to
// subdirectories.
type localAdapter struct {
	baseDir string
	name    string
}

// Verify that localAdapter implements the storage.Adapter interface.
var _ storageAdapter.Adapter = (*localAdapter)(nil)

// NewLocalAdapter creates a new localAdapter rooted at baseDir.
// It validates baseDir and attempts to create it if it doesn't exist.
func NewLocalAdapter(baseDir, name string) (storageAdapter.Adapter, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("local storage adapter '%s': base directory must be specified", name)
	}
	info, err := os.Stat(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(baseDir, 0o755); err != nil {
				return nil, fmt.Errorf("local storage adapter '%s': failed to create base directory '%s': %w", name, baseDir, err)
			}
		} else {
			return nil, fmt.Errorf("local storage adapter '%s': failed to stat base directory '%s': %w", name, baseDir, err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("local storage adapter '%s': '%s' is not a directory", name, baseDir)
	}

	return &localAdapter{baseDir: baseDir, name: name}, nil
}

// Close does nothing for the local file system adapter as it holds no special resources.
func (a *localAdapter) Close() error {
	logger.Debugf("Local storage adapter '%s' closed.", a.name)
	return nil
}

// Name returns the name of this adapter instance.
func (a *localAdapter) Name() string {
	return a.name
}

// Upload writes data to the specified area (a subdirectory) and object name,
// creating intermediate directories as needed.
func (a *localAdapter) Upload(ctx context.Context, area, objectName string, data io.Reader, contentType string) error {
	fullPath, err := a.resolvePath(area, objectName)
	if err != nil {
		return fmt.Errorf("failed to resolve path for upload: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", filepath.Dir(fullPath), err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file '%s': %w", fullPath, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, data); err != nil {
		return fmt.Errorf("failed to write data to file '%s': %w", fullPath, err)
	}
	logger.Debugf("Uploaded data to '%s' (local adapter '%s').", fullPath, a.name)
	return nil
}

// Download reads data from the specified area and object name.
// The returned io.ReadCloser must be closed by the caller.
func (a *localAdapter) Download(ctx context.Context, area, objectName string) (io.ReadCloser, error) {
	fullPath, err := a.resolvePath(area, objectName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path for download: %w", err)
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file '%s': %w", fullPath, err)
	}
	logger.Debugf("Downloaded data from '%s' (local adapter '%s').", fullPath, a.name)
	return file, nil
}

// ListObjects walks the area directory and calls fn for every object whose
// area-relative name starts with prefix. A missing area yields zero objects.
func (a *localAdapter) ListObjects(ctx context.Context, area, prefix string, fn func(objectName string) error) error {
	basePath, err := a.resolvePath(area, "")
	if err != nil {
		return fmt.Errorf("failed to resolve base path for listing: %w", err)
	}

	if _, err := os.Stat(basePath); os.IsNotExist(err) {
		return nil
	}

	err = filepath.WalkDir(basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		objectName, err := filepath.Rel(basePath, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path for '%s' from '%s': %w", path, basePath, err)
		}
		objectName = strings.ReplaceAll(objectName, "\\", "/")

		if prefix != "" && !strings.HasPrefix(objectName, prefix) {
			return nil
		}
		return fn(objectName)
	})
	if err != nil {
		return fmt.Errorf("failed to list objects in '%s' with prefix '%s': %w", basePath, prefix, err)
	}
	return nil
}

// DeleteObject deletes the specified object from the area.
// If the object does not exist, it logs a debug message and returns nil.
func (a *localAdapter) DeleteObject(ctx context.Context, area, objectName string) error {
	fullPath, err := a.resolvePath(area, objectName)
	if err != nil {
		return fmt.Errorf("failed to resolve path for delete: %w", err)
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			logger.Debugf("Attempted to delete non-existent object '%s' (local adapter '%s').", fullPath, a.name)
			return nil
		}
		return fmt.Errorf("failed to delete file '%s': %w", fullPath, err)
	}
	logger.Debugf("Deleted object '%s' (local adapter '%s').", fullPath, a.name)
	return nil
}

// resolvePath resolves the full path of an object relative to the base directory.
// It also checks that the resolved path does not escape the base directory.
func (a *localAdapter) resolvePath(area, objectName string) (string, error) {
	fullPath := filepath.Join(a.baseDir, area, objectName)

	absBaseDir, err := filepath.Abs(a.baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for base directory '%s': %w", a.baseDir, err)
	}
	absFullPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for '%s': %w", fullPath, err)
	}
	// A bare prefix check would accept siblings like "<base>-evil".
	if absFullPath != absBaseDir && !strings.HasPrefix(absFullPath, absBaseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("resolved path '%s' is outside of base directory '%s'", fullPath, a.baseDir)
	}
	return fullPath, nil
}
