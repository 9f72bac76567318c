package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"avatarstudio/internal/textutil"
)

const (
	jobDirPrefix = "job_"
	cacheDirName = "cache"
	manifestName = "manifest.json"
)

// Layout maps job artifacts onto the artifact directory. Each job owns one
// directory named after its id; the cache index lives beside them.
type Layout struct {
	Root string
}

// JobDir returns the directory holding a job's artifacts.
func (l Layout) JobDir(jobID string) string {
	return filepath.Join(l.Root, textutil.SanitizeToken(jobID))
}

// AudioPath returns the speech artifact location for a job and voice.
func (l Layout) AudioPath(jobID, voice, codec string) string {
	return filepath.Join(l.JobDir(jobID), fmt.Sprintf("speech_%s.%s", textutil.SanitizeToken(voice), textutil.SanitizeToken(codec)))
}

// VideoPath returns the rendered video location for a job.
func (l Layout) VideoPath(jobID, format string) string {
	return filepath.Join(l.JobDir(jobID), "avatar_video."+textutil.SanitizeToken(format))
}

// ThumbnailPath derives the thumbnail location from a video path.
func ThumbnailPath(videoPath string) string {
	ext := filepath.Ext(videoPath)
	return strings.TrimSuffix(videoPath, ext) + "_thumb.jpg"
}

// ManifestPath returns the manifest location for a job.
func (l Layout) ManifestPath(jobID string) string {
	return filepath.Join(l.JobDir(jobID), manifestName)
}

// CachePath returns the cache index entry for a cache key.
func (l Layout) CachePath(cacheKey string) string {
	return filepath.Join(l.Root, cacheDirName, textutil.SanitizeToken(cacheKey)+".json")
}

// WriteJSON atomically writes value as indented JSON to path, creating parent
// directories as needed.
func WriteJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("finalize %s: %w", filepath.Base(path), err)
	}
	return nil
}
