package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const backupPrefix = "studio_"

// Backup writes a consistent snapshot of the live database into dir and returns its path.
// VACUUM INTO is used instead of a file copy so WAL contents are included.
func (db *DB) Backup(ctx context.Context, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	path := filepath.Join(dir, backupPrefix+time.Now().Format("20060102_150405")+".db")
	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return "", fmt.Errorf("vacuum into %s: %w", path, err)
	}

	db.logger.Info().Str("path", path).Msg("database backup completed")
	return path, nil
}

// CleanupBackups removes snapshots in dir older than retention and returns how many were deleted.
func (db *DB) CleanupBackups(dir string, retention time.Duration) (int, error) {
	if retention <= 0 {
		return 0, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-retention)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), backupPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				db.logger.Warn().Err(err).Str("file", e.Name()).Msg("failed to delete old backup")
				continue
			}
			removed++
		}
	}
	return removed, nil
}

// RunBackups snapshots the database every interval until ctx is done.
func (db *DB) RunBackups(ctx context.Context, dir string, interval, retention time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := db.Backup(ctx, dir); err != nil {
				db.logger.Error().Err(err).Msg("scheduled backup failed")
				continue
			}
			if n, err := db.CleanupBackups(dir, retention); err != nil {
				db.logger.Error().Err(err).Msg("backup cleanup failed")
			} else if n > 0 {
				db.logger.Info().Int("removed", n).Msg("old backups deleted")
			}
		}
	}
}
