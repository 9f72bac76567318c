package pipelineconfig

import "unicode/utf8"

const (
	shortTextChars   = 100
	longTextChars    = 1000
	shortClipSeconds = 10.0
	longClipSeconds  = 60.0
	shortClipFPS     = 60
	longClipFPS      = 24
)

// Resolver turns caller partials into complete configurations.
type Resolver struct {
	defaults Config
}

// NewResolver builds a resolver whose defaults are the built-in values with
// overrides applied on top.
func NewResolver(overrides Partial) *Resolver {
	return &Resolver{defaults: overrides.Apply(Default())}
}

// Defaults returns the configuration used when a partial is empty.
func (r *Resolver) Defaults() Config {
	if r == nil {
		return Default()
	}
	return r.defaults
}

// Resolve merges partial over the defaults and then tunes render quality and
// frame rate from the text. Heuristics only touch fields the caller left unset.
func (r *Resolver) Resolve(partial Partial, text string) Config {
	cfg := partial.Apply(r.Defaults())

	chars := utf8.RuneCountInString(text)
	if !partial.qualitySet() {
		switch {
		case chars < shortTextChars:
			cfg.Rendering.Quality = QualityPreview
		case chars > longTextChars:
			cfg.Rendering.Quality = QualityCinema
		}
	}

	if !partial.frameRateSet() {
		seconds := EstimateSpokenSeconds(text, cfg.TTS.Speed)
		switch {
		case seconds < shortClipSeconds:
			cfg.Rendering.FrameRate = shortClipFPS
		case seconds > longClipSeconds:
			cfg.Rendering.FrameRate = longClipFPS
		}
	}
	return cfg
}
