package engines

import (
	"context"
	"log/slog"
	"time"

	"avatarstudio/internal/artifacts"
	"avatarstudio/internal/logging"
	"avatarstudio/internal/preflight"
	"avatarstudio/internal/services"
	"avatarstudio/internal/stage"
)

// CodePostProcessFailed is returned when the manifest or cache entry cannot
// be written.
const CodePostProcessFailed = "POSTPROCESS_FAILED"

// PostProcessor writes the job manifest, records the cache index entry and
// marks the output optimized when optimizations are enabled.
type PostProcessor struct {
	opts   Options
	logger *slog.Logger
}

type cacheEntry struct {
	JobID     string    `json:"jobId"`
	VideoURL  string    `json:"videoUrl"`
	AudioURL  string    `json:"audioUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

func (p *PostProcessor) PostProcess(ctx context.Context, req stage.PostProcessRequest) (*stage.Output, error) {
	out := req.Output
	if err := simulate(ctx, p.opts.TimeScale, out.Duration/10, req.Progress); err != nil {
		return nil, err
	}
	if out.ThumbnailURL == "" && out.VideoURL != "" {
		out.ThumbnailURL = artifacts.ThumbnailPath(out.VideoURL)
	}
	out.Metadata.Optimized = req.Performance.EnableOptimizations

	manifest := p.opts.Layout.ManifestPath(req.JobID)
	if err := artifacts.WriteJSON(manifest, out); err != nil {
		return nil, services.StageFailure(CodePostProcessFailed, "write job manifest", map[string]any{"path": manifest}, err)
	}
	if req.Performance.EnableCache && req.CacheKey != "" {
		entry := cacheEntry{JobID: req.JobID, VideoURL: out.VideoURL, AudioURL: out.AudioURL, CreatedAt: time.Now().UTC()}
		if err := artifacts.WriteJSON(p.opts.Layout.CachePath(req.CacheKey), entry); err != nil {
			return nil, services.StageFailure(CodePostProcessFailed, "update cache index", map[string]any{"cacheKey": req.CacheKey}, err)
		}
	}
	p.logger.Debug("output post-processed",
		logging.String(logging.FieldJobID, req.JobID),
		logging.String("manifest", manifest),
		logging.Bool("optimized", out.Metadata.Optimized),
	)
	return &out, nil
}

// HealthCheck reports whether the artifact directory accepts writes.
func (p *PostProcessor) HealthCheck(context.Context) stage.Health {
	check := preflight.CheckDirectoryAccess("post_processing", p.opts.Layout.Root)
	if !check.Passed {
		return stage.Unhealthy("post_processing", check.Detail)
	}
	return stage.Healthy("post_processing")
}
