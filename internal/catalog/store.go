// file: internal/catalog/store.go
// version: 1.1.0
// guid: b4e91d3c-7a26-4f0e-9c85-3d1f6a2b8e57

package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/fileops"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/logger"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/metrics"
)

// defaultLockRetries gives a concurrent run about two seconds to finish.
const defaultLockRetries = 20

// Store reads and writes the catalog file. Writes go through a backup and
// an atomic rename, and Update holds an advisory lock for the whole
// read-modify-write.
type Store struct {
	Path        string
	Format      string
	Backups     fileops.BackupConfig
	LockRetries int
	DryRun      bool
	Log         *logger.Logger
}

// NewStore creates a store for path in the given format.
func NewStore(path, format string) *Store {
	return &Store{
		Path:        path,
		Format:      format,
		Backups:     fileops.DefaultBackupConfig(),
		LockRetries: defaultLockRetries,
		Log:         logger.Discard(),
	}
}

// LockPath is the advisory lock file next to the catalog.
func (s *Store) LockPath() string { return s.Path + ".lock" }

// Load reads and parses the catalog. A missing file is an empty catalog;
// any other read or parse failure is returned and nothing is written.
func (s *Store) Load() (*Document, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		s.Log.Infof("catalog %s does not exist yet, starting empty", s.Path)
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", s.Path, err)
	}

	doc, err := Parse(data, s.Format)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = s.Path
		}
		return nil, err
	}
	s.Log.Debugf("loaded %d catalog entries from %s", doc.Len(), s.Path)
	return doc, nil
}

// Save encodes doc and writes it when the bytes differ from the file on
// disk. It reports whether the file changed.
func (s *Store) Save(doc *Document) (bool, error) {
	data, err := doc.Encode(s.Format)
	if err != nil {
		metrics.IncCatalogWrite("failed")
		return false, err
	}
	if fileops.SameContent(s.Path, data) {
		metrics.IncCatalogWrite("unchanged")
		s.Log.Infof("catalog %s unchanged", s.Path)
		return false, nil
	}
	if s.DryRun {
		metrics.IncCatalogWrite("dry_run")
		s.Log.Infof("dry run: would write %d entries to %s", doc.Len(), s.Path)
		return false, nil
	}

	backups := s.Backups
	if backups.Log == nil {
		backups.Log = s.Log
	}
	if backup, err := fileops.BackupFile(s.Path, backups); err != nil {
		metrics.IncCatalogWrite("failed")
		return false, fmt.Errorf("refusing to write catalog without a backup: %w", err)
	} else if backup != "" {
		s.Log.Debugf("backed up %s to %s", s.Path, backup)
	}

	if err := fileops.WriteFileAtomic(s.Path, data, 0644); err != nil {
		metrics.IncCatalogWrite("failed")
		return false, fmt.Errorf("failed to write catalog %s: %w", s.Path, err)
	}
	metrics.IncCatalogWrite("written")
	metrics.SetEntries(doc.Len())
	s.Log.Infof("wrote %d entries to %s", doc.Len(), s.Path)
	return true, nil
}

// Update runs fn against the current catalog under the lock and saves the
// result. An error from fn leaves the file untouched.
func (s *Store) Update(ctx context.Context, fn func(*Document) error) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	lock, err := acquireLock(s.LockPath(), s.LockRetries)
	if err != nil {
		return false, err
	}
	defer func() {
		if err := lock.release(); err != nil {
			s.Log.Warnf("%v", err)
		}
	}()

	doc, err := s.Load()
	if err != nil {
		return false, err
	}
	if err := fn(doc); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.Save(doc)
}
