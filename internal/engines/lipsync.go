package engines

import (
	"context"
	"log/slog"
	"time"

	"avatarstudio/internal/logging"
	"avatarstudio/internal/pipelineconfig"
	"avatarstudio/internal/services"
	"avatarstudio/internal/stage"
)

// CodeAlignmentFailed is returned when keyframes cannot be derived.
const CodeAlignmentFailed = "LIPSYNC_FAILED"

const (
	visemeRest   = "rest"
	visemeBreath = "breath"
	breathGap    = 250 * time.Millisecond
)

var visemes = map[string]string{
	"a": "AA", "á": "AA", "à": "AA", "â": "AA", "ã": "AA",
	"e": "EH", "é": "EH", "ê": "EH",
	"i": "IH", "í": "IH", "y": "IH",
	"o": "OH", "ó": "OH", "ô": "OH", "õ": "OH",
	"u": "UW", "ú": "UW", "w": "UW",
	"m": "MBP", "b": "MBP", "p": "MBP",
	"f": "FV", "v": "FV",
	"s": "SZ", "z": "SZ", "c": "SZ", "ç": "SZ",
	"l": "L", "n": "L", "t": "DT", "d": "DT",
	"r": "R", "k": "KG", "g": "KG", "q": "KG",
}

// Aligner models phoneme-to-viseme alignment.
type Aligner struct {
	opts   Options
	logger *slog.Logger
}

func (a *Aligner) Align(ctx context.Context, req stage.AlignmentRequest) (*stage.LipSyncResult, error) {
	if req.AudioRef == "" || req.Duration <= 0 {
		return nil, services.StageFailure(CodeAlignmentFailed, "speech audio missing", map[string]any{"audioRef": req.AudioRef}, nil)
	}

	var result *stage.LipSyncResult
	err := stage.Retry(ctx, req.RetryAttempts, a.opts.Backoff, func(ctx context.Context, attempt int) error {
		if err := simulate(ctx, a.opts.TimeScale, time.Duration(float64(req.Duration)*0.15), req.Progress); err != nil {
			return err
		}
		result = &stage.LipSyncResult{
			Keyframes:  keyframes(req),
			Confidence: alignmentConfidence(req.LipSync),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.logger.Debug("lip-sync aligned",
		logging.String(logging.FieldJobID, req.JobID),
		logging.Int("keyframes", len(result.Keyframes)),
		logging.Float64("confidence", result.Confidence),
	)
	return result, nil
}

func keyframes(req stage.AlignmentRequest) []stage.Keyframe {
	cfg := req.LipSync
	weight := cfg.Intensity
	if weight <= 0 {
		weight = 1
	}
	emotion := ""
	if cfg.EnableEmotions && req.Emotion != pipelineconfig.EmotionNeutral {
		emotion = string(req.Emotion)
	}

	frames := make([]stage.Keyframe, 0, len(req.Phonemes)+2)
	frames = append(frames, stage.Keyframe{At: 0, Viseme: visemeRest, Weight: 0})
	var prevEnd time.Duration
	var prevWeight float64
	for _, ph := range req.Phonemes {
		if cfg.EnableBreathing && ph.Start-prevEnd >= breathGap {
			frames = append(frames, stage.Keyframe{At: prevEnd, Viseme: visemeBreath, Weight: weight * 0.3})
		}
		viseme, ok := visemes[ph.Symbol]
		if !ok {
			viseme = visemeRest
		}
		w := weight
		if cfg.Smoothing > 0 {
			w = prevWeight*cfg.Smoothing + weight*(1-cfg.Smoothing)
		}
		frames = append(frames, stage.Keyframe{At: ph.Start, Viseme: viseme, Weight: w, Emotion: emotion})
		prevEnd = ph.End
		prevWeight = w
	}
	frames = append(frames, stage.Keyframe{At: req.Duration, Viseme: visemeRest, Weight: 0})
	return frames
}

func alignmentConfidence(cfg pipelineconfig.LipSync) float64 {
	switch cfg.Precision {
	case pipelineconfig.LevelLow:
		return 0.7
	case pipelineconfig.LevelMedium:
		return 0.8
	case pipelineconfig.LevelUltra:
		return 0.97
	default:
		return 0.9
	}
}
