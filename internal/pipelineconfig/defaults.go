package pipelineconfig

const (
	defaultVoiceID     = "pNInz6obpgDQGcFmaJgB"
	defaultLanguage    = "pt-BR"
	defaultAvatarModel = "professional_female_v2"
)

// Default returns the built-in pipeline configuration.
func Default() Config {
	return Config{
		TTS: TTS{
			Provider: ProviderElevenLabs,
			VoiceID:  defaultVoiceID,
			Language: defaultLanguage,
			Speed:    1.0,
			Pitch:    1.0,
			Emotion:  EmotionNeutral,
			Quality:  LevelHigh,
		},
		Avatar: Avatar{
			Model:      defaultAvatarModel,
			Style:      "professional",
			Gender:     "female",
			Age:        "adult",
			Ethnicity:  "mixed",
			Clothing:   "business",
			Background: "studio",
		},
		LipSync: LipSync{
			Precision:              LevelHigh,
			FrameRate:              60,
			Smoothing:              0.3,
			Intensity:              0.8,
			EnableEmotions:         true,
			EnableBreathing:        true,
			EnableMicroExpressions: false,
		},
		Rendering: Rendering{
			Resolution:     Resolution1080p,
			FrameRate:      30,
			Quality:        QualityProduction,
			Format:         FormatMP4,
			Codec:          CodecH264,
			Bitrate:        5000,
			EnableGPU:      true,
			EnableParallel: true,
		},
		Performance: Performance{
			EnableCache:         true,
			EnablePreprocessing: true,
			EnableOptimizations: true,
			MaxConcurrentJobs:   3,
			TimeoutMs:           300000,
			RetryAttempts:       2,
		},
	}
}
