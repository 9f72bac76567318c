package stage

import (
	"avatarstudio/internal/pipelineconfig"
)

const (
	outputVersion   = "2.0"
	outputPipeline  = "unified-avatar-pipeline"
	audioSampleRate = 44100
	audioCodec      = "aac"
	defaultQuality  = 0.8
)

// DraftOutput assembles the deliverable straight from the speech and render
// results. Post-processing refines it; when post-processing fails the draft is
// delivered as is.
func DraftOutput(cfg pipelineconfig.Config, speech *SpeechResult, lipSync *LipSyncResult, render *RenderResult, cacheKey string) Output {
	scores := QualityScores{
		TTS:     defaultQuality,
		LipSync: defaultQuality,
		Render:  pipelineconfig.QualityScore(cfg.Rendering.Quality),
	}
	var out Output
	if speech != nil {
		out.AudioURL = speech.AudioRef
		out.Duration = speech.Duration
		if speech.Quality > 0 {
			scores.TTS = speech.Quality
		}
	}
	if lipSync != nil && lipSync.Confidence > 0 {
		scores.LipSync = lipSync.Confidence
	}
	if render != nil {
		out.VideoURL = render.VideoRef
		out.ThumbnailURL = render.ThumbnailRef
		out.FileSize = render.FileSize
	}
	scores.Overall = (scores.TTS + scores.LipSync + scores.Render) / 3
	out.Metadata = OutputMetadata{
		Version:  outputVersion,
		Pipeline: outputPipeline,
		Config:   cfg,
		Quality:  scores,
		Technical: Technical{
			AudioSampleRate: audioSampleRate,
			AudioCodec:      audioCodec,
			VideoFrameRate:  cfg.Rendering.FrameRate,
			VideoBitrate:    cfg.Rendering.Bitrate,
			VideoCodec:      string(cfg.Rendering.Codec),
		},
		CacheKey: cacheKey,
	}
	return out
}
