package engines

import (
	"context"
	"log/slog"

	"avatarstudio/internal/artifacts"
	"avatarstudio/internal/logging"
	"avatarstudio/internal/pipelineconfig"
	"avatarstudio/internal/services"
	"avatarstudio/internal/stage"
)

// CodeRenderFailed is returned when the avatar cannot be rendered.
const CodeRenderFailed = "RENDER_FAILED"

// Renderer models the 3D render: wall time follows the quality and
// resolution factors and the file size follows the bitrate.
type Renderer struct {
	opts   Options
	logger *slog.Logger
}

func (r *Renderer) Render(ctx context.Context, req stage.RenderRequest) (*stage.RenderResult, error) {
	if len(req.Keyframes) == 0 {
		return nil, services.StageFailure(CodeRenderFailed, "no lip-sync keyframes to animate", nil, nil)
	}

	cfg := pipelineconfig.Config{Rendering: req.Rendering}
	estimate := pipelineconfig.EstimateRender(cfg, req.Duration.Seconds())
	if !req.Rendering.EnableGPU {
		estimate *= 2
	}
	if req.Rendering.EnableParallel {
		estimate /= 2
	}

	var result *stage.RenderResult
	err := stage.Retry(ctx, req.RetryAttempts, r.opts.Backoff, func(ctx context.Context, attempt int) error {
		if err := simulate(ctx, r.opts.TimeScale, estimate, req.Progress); err != nil {
			return err
		}
		video := r.opts.Layout.VideoPath(req.JobID, string(req.Rendering.Format))
		result = &stage.RenderResult{
			VideoRef:       video,
			ThumbnailRef:   artifacts.ThumbnailPath(video),
			FileSize:       pipelineconfig.EstimateFileSize(req.Duration, req.Rendering.Bitrate),
			FramesRendered: pipelineconfig.FrameCount(req.Duration, req.Rendering.FrameRate),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logger.Debug("avatar rendered",
		logging.String(logging.FieldJobID, req.JobID),
		logging.String("avatar_model", req.Avatar.Model),
		logging.String("resolution", string(req.Rendering.Resolution)),
		logging.Int("frames_rendered", result.FramesRendered),
		logging.Int64("file_size_bytes", result.FileSize),
	)
	return result, nil
}
