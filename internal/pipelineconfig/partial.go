package pipelineconfig

import (
	"strings"

	"golang.org/x/text/language"
)

// Partial is a caller-supplied configuration fragment. A nil field means the
// caller left it unset and the resolver default applies.
type Partial struct {
	TTS         TTSPartial         `toml:"tts,omitempty" json:"tts,omitempty"`
	Avatar      AvatarPartial      `toml:"avatar,omitempty" json:"avatar,omitempty"`
	LipSync     LipSyncPartial     `toml:"lip_sync,omitempty" json:"lipSync,omitempty"`
	Rendering   RenderingPartial   `toml:"rendering,omitempty" json:"rendering,omitempty"`
	Performance PerformancePartial `toml:"performance,omitempty" json:"performance,omitempty"`
}

type TTSPartial struct {
	Provider *Provider `toml:"provider,omitempty" json:"provider,omitempty"`
	VoiceID  *string   `toml:"voice_id,omitempty" json:"voiceId,omitempty"`
	Language *string   `toml:"language,omitempty" json:"language,omitempty"`
	Speed    *float64  `toml:"speed,omitempty" json:"speed,omitempty"`
	Pitch    *float64  `toml:"pitch,omitempty" json:"pitch,omitempty"`
	Emotion  *Emotion  `toml:"emotion,omitempty" json:"emotion,omitempty"`
	Quality  *Level    `toml:"quality,omitempty" json:"quality,omitempty"`
}

type AvatarPartial struct {
	Model      *string `toml:"model,omitempty" json:"model,omitempty"`
	Style      *string `toml:"style,omitempty" json:"style,omitempty"`
	Gender     *string `toml:"gender,omitempty" json:"gender,omitempty"`
	Age        *string `toml:"age,omitempty" json:"age,omitempty"`
	Ethnicity  *string `toml:"ethnicity,omitempty" json:"ethnicity,omitempty"`
	Clothing   *string `toml:"clothing,omitempty" json:"clothing,omitempty"`
	Background *string `toml:"background,omitempty" json:"background,omitempty"`
}

type LipSyncPartial struct {
	Precision              *Level   `toml:"precision,omitempty" json:"precision,omitempty"`
	FrameRate              *int     `toml:"frame_rate,omitempty" json:"frameRate,omitempty"`
	Smoothing              *float64 `toml:"smoothing,omitempty" json:"smoothing,omitempty"`
	Intensity              *float64 `toml:"intensity,omitempty" json:"intensity,omitempty"`
	EnableEmotions         *bool    `toml:"enable_emotions,omitempty" json:"enableEmotions,omitempty"`
	EnableBreathing        *bool    `toml:"enable_breathing,omitempty" json:"enableBreathing,omitempty"`
	EnableMicroExpressions *bool    `toml:"enable_micro_expressions,omitempty" json:"enableMicroExpressions,omitempty"`
}

type RenderingPartial struct {
	Resolution     *Resolution `toml:"resolution,omitempty" json:"resolution,omitempty"`
	FrameRate      *int        `toml:"frame_rate,omitempty" json:"frameRate,omitempty"`
	Quality        *Quality    `toml:"quality,omitempty" json:"quality,omitempty"`
	Format         *Format     `toml:"format,omitempty" json:"format,omitempty"`
	Codec          *Codec      `toml:"codec,omitempty" json:"codec,omitempty"`
	Bitrate        *int        `toml:"bitrate,omitempty" json:"bitrate,omitempty"`
	EnableGPU      *bool       `toml:"enable_gpu,omitempty" json:"enableGPU,omitempty"`
	EnableParallel *bool       `toml:"enable_parallel,omitempty" json:"enableParallel,omitempty"`
}

type PerformancePartial struct {
	EnableCache         *bool `toml:"enable_cache,omitempty" json:"enableCache,omitempty"`
	EnablePreprocessing *bool `toml:"enable_preprocessing,omitempty" json:"enablePreprocessing,omitempty"`
	EnableOptimizations *bool `toml:"enable_optimizations,omitempty" json:"enableOptimizations,omitempty"`
	MaxConcurrentJobs   *int  `toml:"max_concurrent_jobs,omitempty" json:"maxConcurrentJobs,omitempty"`
	TimeoutMs           *int  `toml:"timeout_ms,omitempty" json:"timeoutMs,omitempty"`
	RetryAttempts       *int  `toml:"retry_attempts,omitempty" json:"retryAttempts,omitempty"`
}

// Apply merges p over base field by field. Values outside their allowed range
// or enumeration are ignored and the base value is kept. base is not modified.
func (p Partial) Apply(base Config) Config {
	out := base
	p.TTS.apply(&out.TTS)
	p.Avatar.apply(&out.Avatar)
	p.LipSync.apply(&out.LipSync)
	p.Rendering.apply(&out.Rendering)
	p.Performance.apply(&out.Performance)
	return out
}

func (p TTSPartial) apply(dst *TTS) {
	if p.Provider != nil && oneOf(*p.Provider, providers) {
		dst.Provider = *p.Provider
	}
	setString(&dst.VoiceID, p.VoiceID)
	if p.Language != nil {
		if tag, ok := CanonicalLanguage(*p.Language); ok {
			dst.Language = tag
		}
	}
	setFloat(&dst.Speed, p.Speed, 0.25, 4)
	setFloat(&dst.Pitch, p.Pitch, 0.25, 4)
	if p.Emotion != nil && oneOf(*p.Emotion, emotions) {
		dst.Emotion = *p.Emotion
	}
	if p.Quality != nil && oneOf(*p.Quality, levels) {
		dst.Quality = *p.Quality
	}
}

func (p AvatarPartial) apply(dst *Avatar) {
	setString(&dst.Model, p.Model)
	setEnum(&dst.Style, p.Style, avatarStyles)
	setEnum(&dst.Gender, p.Gender, avatarGenders)
	setEnum(&dst.Age, p.Age, avatarAges)
	setEnum(&dst.Ethnicity, p.Ethnicity, avatarEthnicities)
	setEnum(&dst.Clothing, p.Clothing, avatarClothing)
	setEnum(&dst.Background, p.Background, avatarBackgrounds)
}

func (p LipSyncPartial) apply(dst *LipSync) {
	if p.Precision != nil && oneOf(*p.Precision, levels) {
		dst.Precision = *p.Precision
	}
	setInt(&dst.FrameRate, p.FrameRate, 1, 120)
	setFloat(&dst.Smoothing, p.Smoothing, 0, 1)
	setFloat(&dst.Intensity, p.Intensity, 0, 1)
	setBool(&dst.EnableEmotions, p.EnableEmotions)
	setBool(&dst.EnableBreathing, p.EnableBreathing)
	setBool(&dst.EnableMicroExpressions, p.EnableMicroExpressions)
}

func (p RenderingPartial) apply(dst *Rendering) {
	if p.Resolution != nil && oneOf(*p.Resolution, resolutions) {
		dst.Resolution = *p.Resolution
	}
	if p.FrameRate != nil && validFrameRate(*p.FrameRate) {
		dst.FrameRate = *p.FrameRate
	}
	if p.Quality != nil && oneOf(*p.Quality, qualities) {
		dst.Quality = *p.Quality
	}
	if p.Format != nil && oneOf(*p.Format, formats) {
		dst.Format = *p.Format
	}
	if p.Codec != nil && oneOf(*p.Codec, codecs) {
		dst.Codec = *p.Codec
	}
	setInt(&dst.Bitrate, p.Bitrate, 100, 100000)
	setBool(&dst.EnableGPU, p.EnableGPU)
	setBool(&dst.EnableParallel, p.EnableParallel)
}

func (p PerformancePartial) apply(dst *Performance) {
	setBool(&dst.EnableCache, p.EnableCache)
	setBool(&dst.EnablePreprocessing, p.EnablePreprocessing)
	setBool(&dst.EnableOptimizations, p.EnableOptimizations)
	setInt(&dst.MaxConcurrentJobs, p.MaxConcurrentJobs, 1, 64)
	setInt(&dst.TimeoutMs, p.TimeoutMs, 1, 24*60*60*1000)
	setInt(&dst.RetryAttempts, p.RetryAttempts, 0, 10)
}

// qualitySet reports whether the caller supplied a usable render quality.
func (p Partial) qualitySet() bool {
	return p.Rendering.Quality != nil && oneOf(*p.Rendering.Quality, qualities)
}

// frameRateSet reports whether the caller supplied a usable render frame rate.
func (p Partial) frameRateSet() bool {
	return p.Rendering.FrameRate != nil && validFrameRate(*p.Rendering.FrameRate)
}

// CanonicalLanguage parses a BCP 47 tag and returns its canonical form.
func CanonicalLanguage(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	tag, err := language.Parse(value)
	if err != nil {
		return "", false
	}
	return tag.String(), true
}

func validFrameRate(v int) bool { return v >= 1 && v <= 120 }

func setString(dst *string, v *string) {
	if v == nil {
		return
	}
	if trimmed := strings.TrimSpace(*v); trimmed != "" {
		*dst = trimmed
	}
}

func setEnum(dst *string, v *string, allowed []string) {
	if v == nil {
		return
	}
	if value := strings.ToLower(strings.TrimSpace(*v)); oneOf(value, allowed) {
		*dst = value
	}
}

func setInt(dst *int, v *int, lo, hi int) {
	if v != nil && *v >= lo && *v <= hi {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64, lo, hi float64) {
	if v != nil && *v >= lo && *v <= hi {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// Ptr returns a pointer to v for building partials inline.
func Ptr[T any](v T) *T { return &v }
