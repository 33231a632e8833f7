// file: internal/catalog/lock_windows.go
// version: 1.0.0
// guid: 9d2e4b7c-1f35-4c88-b6a0-2e7f3d9c5b84

//go:build windows

package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// fileLock is a best-effort lock based on exclusive creation of the lock file.
type fileLock struct {
	lockFile *os.File
	path     string
}

func acquireLock(lockPath string, maxRetries int) (*fileLock, error) {
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
		if err == nil {
			return &fileLock{lockFile: f, path: lockPath}, nil
		}
		lastErr = err
		if i < maxRetries {
			time.Sleep(100 * time.Millisecond)
		}
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrCatalogLocked, lockPath, lastErr)
}

func (fl *fileLock) release() error {
	if fl == nil || fl.lockFile == nil {
		return nil
	}
	fl.lockFile.Close()
	fl.lockFile = nil
	if err := os.Remove(fl.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}
