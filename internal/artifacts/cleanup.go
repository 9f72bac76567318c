package artifacts

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"avatarstudio/internal/logging"
)

// CleanResult contains the outcome of an artifact cleanup pass.
type CleanResult struct {
	Removed        []string
	BytesReclaimed int64
	Errors         []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanOrphaned removes job directories whose job is no longer registered.
// Directories that do not look like job directories are left alone, as are
// directories modified after olderThan when it is non-zero.
func CleanOrphaned(ctx context.Context, root string, activeJobs map[string]struct{}, olderThan time.Time, logger *slog.Logger) CleanResult {
	result := CleanResult{}

	dirs, err := ListDirectories(root)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: root, Error: err})
		return result
	}

	for _, dir := range dirs {
		if ctx.Err() != nil {
			return result
		}
		if _, active := activeJobs[dir.Name]; active {
			continue
		}
		if !olderThan.IsZero() && dir.ModTime.After(olderThan) {
			continue
		}

		if err := os.RemoveAll(dir.Path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dir.Path, Error: err})
			if logger != nil {
				logger.Warn("failed to remove orphaned artifact directory",
					logging.String("path", dir.Path),
					logging.Error(err),
					logging.String(logging.FieldEventType, "artifact_cleanup_failed"),
					logging.String(logging.FieldErrorHint, "check artifact_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, dir.Path)
		result.BytesReclaimed += dir.Size
		if logger != nil {
			logger.Info("removed orphaned artifact directory",
				logging.String("path", dir.Path),
				logging.Int64("bytes", dir.Size),
				logging.String(logging.FieldEventType, "artifact_cleanup"),
			)
		}
	}

	return result
}

// DirInfo contains metadata about a job artifact directory.
type DirInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// ListDirectories returns every job directory under root with its size.
func ListDirectories(root string) ([]DirInfo, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), jobDirPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dirPath := filepath.Join(root, entry.Name())
		size, _ := dirSize(dirPath)
		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    dirPath,
			ModTime: info.ModTime(),
			Size:    size,
		})
	}
	return dirs, nil
}

func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			if info, infoErr := d.Info(); infoErr == nil {
				size += info.Size()
			}
		}
		return nil
	})
	return size, err
}
