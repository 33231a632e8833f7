// file: internal/fileops/safe_operations.go
// version: 2.1.0
// guid: 8f7e6d5c-4b3a-2918-7f6e-5d4c3b2a1908

package fileops

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/logger"
)

// backupTimeFormat sorts lexically in creation order.
const backupTimeFormat = "20060102_150405.000000"

// BackupConfig configures where backups of a file are kept
type BackupConfig struct {
	// Dir is the directory where backups are stored. Relative paths are
	// resolved against the directory of the file being backed up.
	Dir string
	// MaxBackups limits the number of backups kept per file. Zero or less
	// keeps all of them.
	MaxBackups int
	// Log receives pruning failures. Nil drops them.
	Log *logger.Logger
}

// DefaultBackupConfig returns the default backup configuration
func DefaultBackupConfig() BackupConfig {
	return BackupConfig{
		Dir:        ".catalog-backups",
		MaxBackups: 5,
	}
}

func (c BackupConfig) dirFor(path string) string {
	if filepath.IsAbs(c.Dir) {
		return c.Dir
	}
	return filepath.Join(filepath.Dir(path), c.Dir)
}

// BackupFile copies path to a timestamped "<name>.<time>.backup" file and
// prunes older backups beyond MaxBackups. A missing source is not an error
// and yields an empty backup path.
func BackupFile(path string, cfg BackupConfig) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", nil
	}

	backupDir := cfg.dirFor(path)
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := fmt.Sprintf("%s.%s.backup", filepath.Base(path), time.Now().Format(backupTimeFormat))
	backupPath := filepath.Join(backupDir, name)
	if err := copyFile(path, backupPath); err != nil {
		return "", fmt.Errorf("failed to backup %s: %w", path, err)
	}

	if err := cleanupOldBackups(path, cfg); err != nil {
		cfg.Log.Warnf("failed to cleanup old backups of %s: %v", path, err)
	}
	return backupPath, nil
}

// ListBackups returns the backups of path, oldest first.
func ListBackups(path string, cfg BackupConfig) ([]string, error) {
	pattern := filepath.Join(cfg.dirFor(path), fmt.Sprintf("%s.*.backup", filepath.Base(path)))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// cleanupOldBackups removes excess backup files
func cleanupOldBackups(path string, cfg BackupConfig) error {
	if cfg.MaxBackups <= 0 {
		return nil
	}
	matches, err := ListBackups(path, cfg)
	if err != nil {
		return err
	}
	if len(matches) <= cfg.MaxBackups {
		return nil
	}

	toRemove := len(matches) - cfg.MaxBackups
	for i := 0; i < toRemove; i++ {
		if err := os.Remove(matches[i]); err != nil {
			cfg.Log.Warnf("failed to remove old backup %s: %v", matches[i], err)
		}
	}
	return nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place, so readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	tmpName = ""
	return nil
}

// copyFile copies a file from src to dst and syncs it to disk
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	destFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := destFile.Write(data); err != nil {
		return err
	}
	return destFile.Sync()
}
