package workspace

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"flipscan/internal/artifact"
	"flipscan/internal/logging"
)

// CleanStaleResult contains the outcome of a stale temp file cleanup.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes staged artifact temp files older than maxAge. Such files
// only survive when a process died between staging and rename; callers hold
// the destination lock, so no live writer owns them.
func (w *Workspace) CleanStale(ctx context.Context, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}
	cutoff := time.Now().Add(-maxAge)

	for _, kind := range artifact.Kinds {
		if ctx.Err() != nil {
			return result
		}
		dir := filepath.Join(w.Root, kind.Dir())
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
			}
			continue
		}

		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".tmp") {
				continue
			}
			path := filepath.Join(dir, name)
			info, err := entry.Info()
			if err != nil {
				result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
				continue
			}
			if !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.Remove(path); err != nil {
				result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
				if logger != nil {
					logger.Warn("failed to remove stale temp file",
						logging.String("path", path),
						logging.Error(err),
						logging.String(logging.FieldEventType, "workspace_cleanup_failed"),
						logging.String(logging.FieldErrorHint, "check destination permissions"),
					)
				}
				continue
			}
			result.Removed = append(result.Removed, path)
			if logger != nil {
				logger.Info("removed stale temp file",
					logging.String("path", path),
					logging.Duration("age", time.Since(info.ModTime())),
					logging.String(logging.FieldEventType, "workspace_cleanup"),
				)
			}
		}
	}
	return result
}
