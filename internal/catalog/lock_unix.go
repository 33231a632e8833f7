// file: internal/catalog/lock_unix.go
// version: 1.0.0
// guid: 3a1f5c2e-8e44-4b7b-a3d9-51c6b0e2d7a1

//go:build !windows

package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// fileLock is an advisory flock held for the duration of one update.
type fileLock struct {
	lockFile *os.File
	path     string
}

// acquireLock takes an exclusive lock on lockPath, retrying every 100ms up
// to maxRetries times before giving up with ErrCatalogLocked.
func acquireLock(lockPath string, maxRetries int) (*fileLock, error) {
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open lock file: %w", err)
		}

		err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			return &fileLock{lockFile: f, path: lockPath}, nil
		}
		f.Close()
		if !errors.Is(err, syscall.EWOULDBLOCK) {
			return nil, fmt.Errorf("failed to lock %s: %w", lockPath, err)
		}
		lastErr = err

		if i < maxRetries {
			time.Sleep(100 * time.Millisecond)
		}
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrCatalogLocked, lockPath, lastErr)
}

// release drops the lock. The lock file itself is left in place.
func (fl *fileLock) release() error {
	if fl == nil || fl.lockFile == nil {
		return nil
	}
	if err := syscall.Flock(int(fl.lockFile.Fd()), syscall.LOCK_UN); err != nil {
		fl.lockFile.Close()
		fl.lockFile = nil
		return fmt.Errorf("failed to release lock: %w", err)
	}
	err := fl.lockFile.Close()
	fl.lockFile = nil
	if err != nil {
		return fmt.Errorf("failed to close lock file: %w", err)
	}
	return nil
}
