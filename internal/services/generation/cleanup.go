package generation

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// CleanupResult counts what CleanupOlderThan removed.
type CleanupResult struct {
	FilesRemoved int `json:"files_removed"`
	DirsRemoved  int `json:"dirs_removed"`
}

// CleanupOlderThan removes entries directly under root whose modification time is
// older than maxAge. Directories are removed with their contents. A missing root is
// not an error.
func CleanupOlderThan(root string, maxAge time.Duration, now time.Time, logger *zap.Logger) (CleanupResult, error) {
	var res CleanupResult
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("failed to list %s: %w", root, err)
	}

	cutoff := now.Add(-maxAge)
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			logger.Warn("skipping unreadable entry", zap.String("name", e.Name()), zap.Error(err))
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(root, e.Name())
		if err := os.RemoveAll(path); err != nil {
			logger.Warn("failed to remove old output", zap.String("path", path), zap.Error(err))
			continue
		}
		if e.IsDir() {
			res.DirsRemoved++
		} else {
			res.FilesRemoved++
		}
	}
	logger.Info("output cleanup finished",
		zap.String("root", root),
		zap.Int("files_removed", res.FilesRemoved),
		zap.Int("dirs_removed", res.DirsRemoved))
	return res, nil
}
