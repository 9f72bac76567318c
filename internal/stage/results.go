package stage

import (
	"time"

	"avatarstudio/internal/pipelineconfig"
)

// Phoneme is a timed speech unit produced by synthesis.
type Phoneme struct {
	Symbol string        `json:"symbol"`
	Start  time.Duration `json:"start"`
	End    time.Duration `json:"end"`
}

// Keyframe is a mouth shape at a point on the audio timeline.
type Keyframe struct {
	At      time.Duration `json:"at"`
	Viseme  string        `json:"viseme"`
	Weight  float64       `json:"weight"`
	Emotion string        `json:"emotion,omitempty"`
}

// SpeechResult is the text-to-speech output.
type SpeechResult struct {
	AudioRef string        `json:"audioRef"`
	Phonemes []Phoneme     `json:"phonemes"`
	Duration time.Duration `json:"duration"`
	Quality  float64       `json:"quality"`
}

// LipSyncResult is the keyframe alignment output.
type LipSyncResult struct {
	Keyframes  []Keyframe `json:"keyframes"`
	Confidence float64    `json:"confidence"`
}

// RenderResult is the 3D render output.
type RenderResult struct {
	VideoRef       string `json:"videoRef"`
	ThumbnailRef   string `json:"thumbnailRef"`
	FileSize       int64  `json:"fileSize"`
	FramesRendered int    `json:"framesRendered"`
}

// QualityScores grades each stage on a 0..1 scale.
type QualityScores struct {
	TTS     float64 `json:"tts"`
	LipSync float64 `json:"lipSync"`
	Render  float64 `json:"render"`
	Overall float64 `json:"overall"`
}

// Technical lists the encode parameters of the delivered file.
type Technical struct {
	AudioSampleRate int    `json:"audioSampleRate"`
	AudioCodec      string `json:"audioCodec"`
	VideoFrameRate  int    `json:"videoFrameRate"`
	VideoBitrate    int    `json:"videoBitrate"`
	VideoCodec      string `json:"videoCodec"`
}

// OutputMetadata accompanies the delivered video.
type OutputMetadata struct {
	Version   string                `json:"version"`
	Pipeline  string                `json:"pipeline"`
	Config    pipelineconfig.Config `json:"config"`
	Quality   QualityScores         `json:"quality"`
	Technical Technical             `json:"technical"`
	Optimized bool                  `json:"optimized"`
	CacheKey  string                `json:"cacheKey,omitempty"`
}

// Output is the final deliverable of a completed job.
type Output struct {
	VideoURL     string         `json:"videoUrl"`
	AudioURL     string         `json:"audioUrl"`
	ThumbnailURL string         `json:"thumbnailUrl"`
	Duration     time.Duration  `json:"duration"`
	FileSize     int64          `json:"fileSize"`
	Metadata     OutputMetadata `json:"metadata"`
}
