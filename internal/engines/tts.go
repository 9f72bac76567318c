package engines

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"avatarstudio/internal/logging"
	"avatarstudio/internal/pipelineconfig"
	"avatarstudio/internal/services"
	"avatarstudio/internal/stage"
)

// CodeSynthesisFailed is returned when speech cannot be produced.
const CodeSynthesisFailed = "TTS_FAILED"

// Synthesizer models speech synthesis: narration length follows the spoken
// duration estimate and phonemes are spread evenly across each word.
type Synthesizer struct {
	opts   Options
	logger *slog.Logger
}

func (s *Synthesizer) Synthesize(ctx context.Context, req stage.SynthesisRequest) (*stage.SpeechResult, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, services.StageFailure(CodeSynthesisFailed, "no text to synthesize", nil, nil)
	}

	seconds := pipelineconfig.EstimateSpokenSeconds(text, req.TTS.Speed)
	duration := time.Duration(seconds * float64(time.Second))
	var result *stage.SpeechResult
	err := stage.Retry(ctx, req.RetryAttempts, s.opts.Backoff, func(ctx context.Context, attempt int) error {
		if attempt > 0 {
			s.logger.Info("retrying speech synthesis", logging.Int("attempt", attempt), logging.String(logging.FieldJobID, req.JobID))
		}
		if err := simulate(ctx, s.opts.TimeScale, time.Duration(float64(duration)*0.25), req.Progress); err != nil {
			return err
		}
		result = &stage.SpeechResult{
			AudioRef: s.opts.Layout.AudioPath(req.JobID, voiceName(req.TTS), "aac"),
			Phonemes: phonemize(text, req.TTS.Speed, req.LipSyncPrecision),
			Duration: duration,
			Quality:  speechQuality(req.TTS),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("speech synthesized",
		logging.String(logging.FieldJobID, req.JobID),
		logging.String("provider", string(req.TTS.Provider)),
		logging.Duration("audio_duration", duration),
		logging.Int("phonemes", len(result.Phonemes)),
	)
	return result, nil
}

func voiceName(tts pipelineconfig.TTS) string {
	if tts.VoiceID != "" {
		return tts.VoiceID
	}
	return string(tts.Provider) + "_" + tts.Language
}

// phonemize assigns each word an equal slot at the configured speed and adds
// the punctuation pause after words that end a clause. Low precision emits one
// unit per word; other levels emit one per letter.
func phonemize(text string, speed float64, precision pipelineconfig.Level) []stage.Phoneme {
	if speed <= 0 {
		speed = 1
	}
	wordSlot := time.Duration(60 / (160 * speed) * float64(time.Second))
	pause := 300 * time.Millisecond

	var phonemes []stage.Phoneme
	var at time.Duration
	for _, word := range strings.Fields(text) {
		letters := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, word)
		units := []rune(letters)
		if precision == pipelineconfig.LevelLow && len(units) > 0 {
			units = units[:1]
		}
		if len(units) > 0 {
			unit := wordSlot / time.Duration(len(units))
			for i, r := range units {
				start := at + time.Duration(i)*unit
				phonemes = append(phonemes, stage.Phoneme{Symbol: string(r), Start: start, End: start + unit})
			}
		}
		at += wordSlot
		if last := word[len(word)-1]; strings.ContainsRune(".,;:!?", rune(last)) {
			at += pause
		}
	}
	return phonemes
}

func speechQuality(tts pipelineconfig.TTS) float64 {
	var score float64
	switch tts.Quality {
	case pipelineconfig.LevelLow:
		score = 0.6
	case pipelineconfig.LevelMedium:
		score = 0.75
	case pipelineconfig.LevelUltra:
		score = 0.95
	default:
		score = 0.85
	}
	if tts.Provider == pipelineconfig.ProviderSynthetic {
		score -= 0.1
	}
	return score
}
