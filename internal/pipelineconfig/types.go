package pipelineconfig

// Provider names a speech synthesis backend.
type Provider string

const (
	ProviderElevenLabs Provider = "elevenlabs"
	ProviderAzure      Provider = "azure"
	ProviderGoogle     Provider = "google"
	ProviderSynthetic  Provider = "synthetic"
)

// Emotion is the delivery tone requested from speech synthesis.
type Emotion string

const (
	EmotionNeutral Emotion = "neutral"
	EmotionHappy   Emotion = "happy"
	EmotionSad     Emotion = "sad"
	EmotionAngry   Emotion = "angry"
	EmotionExcited Emotion = "excited"
)

// Level is the shared low..ultra scale used by voice quality and lip-sync
// precision.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
	LevelUltra  Level = "ultra"
)

// Resolution is the output video resolution.
type Resolution string

const (
	Resolution720p  Resolution = "720p"
	Resolution1080p Resolution = "1080p"
	Resolution4K    Resolution = "4K"
)

// Quality is the render quality tier, ordered from lightest to heaviest.
type Quality string

const (
	QualityDraft      Quality = "draft"
	QualityPreview    Quality = "preview"
	QualityProduction Quality = "production"
	QualityCinema     Quality = "cinema"
)

// Format is the output container.
type Format string

const (
	FormatMP4  Format = "mp4"
	FormatWebM Format = "webm"
	FormatMOV  Format = "mov"
)

// Codec is the output video codec.
type Codec string

const (
	CodecH264 Codec = "h264"
	CodecH265 Codec = "h265"
	CodecVP9  Codec = "vp9"
	CodecAV1  Codec = "av1"
)

var (
	providers   = []Provider{ProviderElevenLabs, ProviderAzure, ProviderGoogle, ProviderSynthetic}
	emotions    = []Emotion{EmotionNeutral, EmotionHappy, EmotionSad, EmotionAngry, EmotionExcited}
	levels      = []Level{LevelLow, LevelMedium, LevelHigh, LevelUltra}
	resolutions = []Resolution{Resolution720p, Resolution1080p, Resolution4K}
	qualities   = []Quality{QualityDraft, QualityPreview, QualityProduction, QualityCinema}
	formats     = []Format{FormatMP4, FormatWebM, FormatMOV}
	codecs      = []Codec{CodecH264, CodecH265, CodecVP9, CodecAV1}

	avatarStyles      = []string{"realistic", "cartoon", "professional", "casual"}
	avatarGenders     = []string{"male", "female", "neutral"}
	avatarAges        = []string{"young", "adult", "mature"}
	avatarEthnicities = []string{"caucasian", "african", "asian", "hispanic", "mixed"}
	avatarClothing    = []string{"business", "casual", "formal", "custom"}
	avatarBackgrounds = []string{"studio", "office", "home", "green_screen", "custom"}
)

func oneOf[T ~string](value T, allowed []T) bool {
	for _, candidate := range allowed {
		if value == candidate {
			return true
		}
	}
	return false
}

// TTS configures speech synthesis.
type TTS struct {
	Provider Provider `toml:"provider" json:"provider"`
	VoiceID  string   `toml:"voice_id" json:"voiceId"`
	Language string   `toml:"language" json:"language"`
	Speed    float64  `toml:"speed" json:"speed"`
	Pitch    float64  `toml:"pitch" json:"pitch"`
	Emotion  Emotion  `toml:"emotion" json:"emotion"`
	Quality  Level    `toml:"quality" json:"quality"`
}

// Avatar describes the rendered character.
type Avatar struct {
	Model      string `toml:"model" json:"model"`
	Style      string `toml:"style" json:"style"`
	Gender     string `toml:"gender" json:"gender"`
	Age        string `toml:"age" json:"age"`
	Ethnicity  string `toml:"ethnicity" json:"ethnicity"`
	Clothing   string `toml:"clothing" json:"clothing"`
	Background string `toml:"background" json:"background"`
}

// LipSync configures keyframe alignment.
type LipSync struct {
	Precision              Level   `toml:"precision" json:"precision"`
	FrameRate              int     `toml:"frame_rate" json:"frameRate"`
	Smoothing              float64 `toml:"smoothing" json:"smoothing"`
	Intensity              float64 `toml:"intensity" json:"intensity"`
	EnableEmotions         bool    `toml:"enable_emotions" json:"enableEmotions"`
	EnableBreathing        bool    `toml:"enable_breathing" json:"enableBreathing"`
	EnableMicroExpressions bool    `toml:"enable_micro_expressions" json:"enableMicroExpressions"`
}

// Rendering configures the 3D render and encode.
type Rendering struct {
	Resolution     Resolution `toml:"resolution" json:"resolution"`
	FrameRate      int        `toml:"frame_rate" json:"frameRate"`
	Quality        Quality    `toml:"quality" json:"quality"`
	Format         Format     `toml:"format" json:"format"`
	Codec          Codec      `toml:"codec" json:"codec"`
	Bitrate        int        `toml:"bitrate" json:"bitrate"`
	EnableGPU      bool       `toml:"enable_gpu" json:"enableGPU"`
	EnableParallel bool       `toml:"enable_parallel" json:"enableParallel"`
}

// Performance carries execution limits applied to a single job.
type Performance struct {
	EnableCache         bool `toml:"enable_cache" json:"enableCache"`
	EnablePreprocessing bool `toml:"enable_preprocessing" json:"enablePreprocessing"`
	EnableOptimizations bool `toml:"enable_optimizations" json:"enableOptimizations"`
	MaxConcurrentJobs   int  `toml:"max_concurrent_jobs" json:"maxConcurrentJobs"`
	TimeoutMs           int  `toml:"timeout_ms" json:"timeoutMs"`
	RetryAttempts       int  `toml:"retry_attempts" json:"retryAttempts"`
}

// Config is a fully resolved pipeline configuration. Once attached to a job it
// is never modified.
type Config struct {
	TTS         TTS         `toml:"tts" json:"tts"`
	Avatar      Avatar      `toml:"avatar" json:"avatar"`
	LipSync     LipSync     `toml:"lip_sync" json:"lipSync"`
	Rendering   Rendering   `toml:"rendering" json:"rendering"`
	Performance Performance `toml:"performance" json:"performance"`
}
