package pipelineconfig

import (
	"math"
	"strings"
	"time"
)

const (
	wordsPerMinute   = 160.0
	punctuationPause = 0.3
	punctuationMarks = ".,;:!?"
)

// CountWords returns the number of whitespace separated words in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// CountPunctuation returns the number of pause-inducing punctuation marks.
func CountPunctuation(text string) int {
	count := 0
	for _, r := range text {
		if strings.ContainsRune(punctuationMarks, r) {
			count++
		}
	}
	return count
}

// EstimateSpokenSeconds estimates narration length for text at the given
// speech speed multiplier.
func EstimateSpokenSeconds(text string, speed float64) float64 {
	if speed <= 0 {
		speed = 1
	}
	words := float64(CountWords(text))
	return words/(wordsPerMinute*speed)*60 + float64(CountPunctuation(text))*punctuationPause
}

// QualityFactor weights render cost by quality tier.
func QualityFactor(q Quality) float64 {
	switch q {
	case QualityDraft:
		return 0.5
	case QualityProduction:
		return 2
	case QualityCinema:
		return 4
	default:
		return 1
	}
}

// ResolutionFactor weights render cost by output resolution.
func ResolutionFactor(r Resolution) float64 {
	switch r {
	case Resolution1080p:
		return 2
	case Resolution4K:
		return 8
	default:
		return 1
	}
}

// QualityScore maps the render quality tier onto 0..1 for output metadata.
func QualityScore(q Quality) float64 {
	switch q {
	case QualityDraft:
		return 0.4
	case QualityProduction:
		return 0.8
	case QualityCinema:
		return 1
	default:
		return 0.6
	}
}

// EstimateRender estimates the wall time the renderer needs for a clip of the
// given length: one second per spoken second scaled by quality and resolution.
func EstimateRender(cfg Config, spokenSeconds float64) time.Duration {
	if spokenSeconds <= 0 {
		return 0
	}
	ms := math.Ceil(1000 * spokenSeconds * QualityFactor(cfg.Rendering.Quality) * ResolutionFactor(cfg.Rendering.Resolution))
	return time.Duration(ms) * time.Millisecond
}

// EstimateProcessing estimates the total pipeline time for a clip: speech and
// alignment scale with the narration length, rendering follows EstimateRender.
func EstimateProcessing(cfg Config, spokenSeconds float64) time.Duration {
	if spokenSeconds <= 0 {
		return 0
	}
	speech := time.Duration(spokenSeconds * 0.25 * float64(time.Second))
	align := time.Duration(spokenSeconds * 0.15 * float64(time.Second))
	return speech + align + EstimateRender(cfg, spokenSeconds)
}

// EstimateFileSize estimates the encoded size in bytes for a clip with the
// given duration and bitrate in kbps.
func EstimateFileSize(duration time.Duration, bitrateKbps int) int64 {
	if bitrateKbps <= 0 {
		bitrateKbps = 5000
	}
	return int64(math.Ceil(duration.Seconds() * float64(bitrateKbps) * 1024 / 8))
}

// FrameCount returns the number of frames needed for duration at fps.
func FrameCount(duration time.Duration, fps int) int {
	if fps <= 0 || duration <= 0 {
		return 0
	}
	return int(math.Ceil(duration.Seconds() * float64(fps)))
}
