package stage

import (
	"context"
	"time"

	"avatarstudio/internal/pipelineconfig"
)

// ProgressFunc receives sub-stage progress as a fraction in [0, 1].
type ProgressFunc func(fraction float64)

// Report calls fn when it is set.
func (fn ProgressFunc) Report(fraction float64) {
	if fn == nil {
		return
	}
	switch {
	case fraction < 0:
		fraction = 0
	case fraction > 1:
		fraction = 1
	}
	fn(fraction)
}

// SynthesisRequest carries the text and voice settings for speech synthesis.
type SynthesisRequest struct {
	JobID            string
	Text             string
	TTS              pipelineconfig.TTS
	LipSyncPrecision pipelineconfig.Level
	RetryAttempts    int
	Progress         ProgressFunc
}

// AlignmentRequest carries the synthesized speech for lip-sync alignment.
type AlignmentRequest struct {
	JobID         string
	AudioRef      string
	Phonemes      []Phoneme
	Duration      time.Duration
	Text          string
	Emotion       pipelineconfig.Emotion
	LipSync       pipelineconfig.LipSync
	RetryAttempts int
	Progress      ProgressFunc
}

// RenderRequest carries the avatar, keyframes and audio for rendering.
type RenderRequest struct {
	JobID         string
	Avatar        pipelineconfig.Avatar
	Keyframes     []Keyframe
	AudioRef      string
	Duration      time.Duration
	Rendering     pipelineconfig.Rendering
	RetryAttempts int
	Progress      ProgressFunc
}

// PostProcessRequest carries the draft output for optimization and caching.
type PostProcessRequest struct {
	JobID       string
	Output      Output
	Rendering   pipelineconfig.Rendering
	Performance pipelineconfig.Performance
	CacheKey    string
	Progress    ProgressFunc
}

// Synthesizer converts text into speech.
type Synthesizer interface {
	Synthesize(context.Context, SynthesisRequest) (*SpeechResult, error)
}

// Aligner derives lip-sync keyframes from speech.
type Aligner interface {
	Align(context.Context, AlignmentRequest) (*LipSyncResult, error)
}

// Renderer produces the avatar video.
type Renderer interface {
	Render(context.Context, RenderRequest) (*RenderResult, error)
}

// PostProcessor refines the draft output. Failures are non-fatal to the job.
type PostProcessor interface {
	PostProcess(context.Context, PostProcessRequest) (*Output, error)
}

// HealthChecker is implemented by executors that can report readiness.
type HealthChecker interface {
	HealthCheck(context.Context) Health
}

// Executors bundles the stage implementations the orchestrator drives.
// PostProcessor may be nil, in which case the draft output is delivered as is.
type Executors struct {
	Synthesizer   Synthesizer
	Aligner       Aligner
	Renderer      Renderer
	PostProcessor PostProcessor
}
