package pipelineconfig_test

import (
	"math"
	"strings"
	"testing"
	"time"

	"avatarstudio/internal/pipelineconfig"
)

func TestResolveEmptyPartialUsesDefaults(t *testing.T) {
	r := pipelineconfig.NewResolver(pipelineconfig.Partial{})
	text := strings.Repeat("palavra ", 40) // 320 chars, 15 seconds
	cfg := r.Resolve(pipelineconfig.Partial{}, text)

	def := pipelineconfig.Default()
	if cfg != def {
		t.Fatalf("expected defaults for mid-length text, got %+v", cfg)
	}
	if cfg.TTS.Provider != pipelineconfig.ProviderElevenLabs || cfg.TTS.Language != "pt-BR" {
		t.Fatalf("unexpected tts defaults: %+v", cfg.TTS)
	}
	if cfg.Performance.TimeoutMs != 300000 || cfg.Performance.RetryAttempts != 2 {
		t.Fatalf("unexpected performance defaults: %+v", cfg.Performance)
	}
}

func TestResolveShortTextHeuristics(t *testing.T) {
	r := pipelineconfig.NewResolver(pipelineconfig.Partial{})
	cfg := r.Resolve(pipelineconfig.Partial{}, "Olá")
	if cfg.Rendering.Quality != pipelineconfig.QualityPreview {
		t.Fatalf("quality = %s, want preview", cfg.Rendering.Quality)
	}
	if cfg.Rendering.FrameRate != 60 {
		t.Fatalf("frame rate = %d, want 60", cfg.Rendering.FrameRate)
	}
}

func TestResolveLongTextHeuristics(t *testing.T) {
	r := pipelineconfig.NewResolver(pipelineconfig.Partial{})
	text := strings.Repeat("uma frase longa ", 120) // 360 words, > 1000 chars
	cfg := r.Resolve(pipelineconfig.Partial{}, text)
	if cfg.Rendering.Quality != pipelineconfig.QualityCinema {
		t.Fatalf("quality = %s, want cinema", cfg.Rendering.Quality)
	}
	if cfg.Rendering.FrameRate != 24 {
		t.Fatalf("frame rate = %d, want 24", cfg.Rendering.FrameRate)
	}
}

func TestResolveHeuristicsRespectExplicitFields(t *testing.T) {
	r := pipelineconfig.NewResolver(pipelineconfig.Partial{})
	partial := pipelineconfig.Partial{
		Rendering: pipelineconfig.RenderingPartial{
			Quality:   pipelineconfig.Ptr(pipelineconfig.QualityDraft),
			FrameRate: pipelineconfig.Ptr(25),
		},
	}
	cfg := r.Resolve(partial, "Olá")
	if cfg.Rendering.Quality != pipelineconfig.QualityDraft {
		t.Fatalf("explicit quality overridden: %s", cfg.Rendering.Quality)
	}
	if cfg.Rendering.FrameRate != 25 {
		t.Fatalf("explicit frame rate overridden: %d", cfg.Rendering.FrameRate)
	}
}

func TestResolveDoesNotMutatePartial(t *testing.T) {
	r := pipelineconfig.NewResolver(pipelineconfig.Partial{})
	speed := 1.5
	partial := pipelineconfig.Partial{TTS: pipelineconfig.TTSPartial{Speed: &speed}}
	cfg := r.Resolve(partial, "Olá mundo")
	if cfg.TTS.Speed != 1.5 {
		t.Fatalf("speed = %v, want 1.5", cfg.TTS.Speed)
	}
	if *partial.TTS.Speed != 1.5 || partial.Rendering.Quality != nil {
		t.Fatal("partial was modified")
	}
}

func TestResolveInvalidValuesFallBack(t *testing.T) {
	r := pipelineconfig.NewResolver(pipelineconfig.Partial{})
	partial := pipelineconfig.Partial{
		TTS: pipelineconfig.TTSPartial{
			Provider: pipelineconfig.Ptr(pipelineconfig.Provider("nope")),
			Language: pipelineconfig.Ptr("not a tag!"),
			Speed:    pipelineconfig.Ptr(-3.0),
		},
		Rendering: pipelineconfig.RenderingPartial{
			Resolution: pipelineconfig.Ptr(pipelineconfig.Resolution("8K")),
			Bitrate:    pipelineconfig.Ptr(0),
		},
		Avatar: pipelineconfig.AvatarPartial{Style: pipelineconfig.Ptr("Cartoon")},
	}
	cfg := r.Resolve(partial, strings.Repeat("texto ", 30))
	def := pipelineconfig.Default()
	if cfg.TTS.Provider != def.TTS.Provider || cfg.TTS.Language != def.TTS.Language || cfg.TTS.Speed != def.TTS.Speed {
		t.Fatalf("invalid tts values should fall back: %+v", cfg.TTS)
	}
	if cfg.Rendering.Resolution != def.Rendering.Resolution || cfg.Rendering.Bitrate != def.Rendering.Bitrate {
		t.Fatalf("invalid rendering values should fall back: %+v", cfg.Rendering)
	}
	if cfg.Avatar.Style != "cartoon" {
		t.Fatalf("avatar style = %q, want cartoon", cfg.Avatar.Style)
	}
}

func TestResolveCanonicalizesLanguage(t *testing.T) {
	r := pipelineconfig.NewResolver(pipelineconfig.Partial{})
	cfg := r.Resolve(pipelineconfig.Partial{TTS: pipelineconfig.TTSPartial{Language: pipelineconfig.Ptr("en-us")}}, "hello")
	if cfg.TTS.Language != "en-US" {
		t.Fatalf("language = %q, want en-US", cfg.TTS.Language)
	}
}

func TestResolverOverridesChangeDefaults(t *testing.T) {
	r := pipelineconfig.NewResolver(pipelineconfig.Partial{
		TTS: pipelineconfig.TTSPartial{Provider: pipelineconfig.Ptr(pipelineconfig.ProviderSynthetic)},
	})
	if got := r.Defaults().TTS.Provider; got != pipelineconfig.ProviderSynthetic {
		t.Fatalf("provider = %s, want synthetic", got)
	}
	cfg := r.Resolve(pipelineconfig.Partial{}, "Olá")
	if cfg.TTS.Provider != pipelineconfig.ProviderSynthetic {
		t.Fatalf("resolved provider = %s", cfg.TTS.Provider)
	}
}

func TestEstimateSpokenSeconds(t *testing.T) {
	got := pipelineconfig.EstimateSpokenSeconds("Olá", 1)
	if math.Abs(got-0.375) > 1e-9 {
		t.Fatalf("EstimateSpokenSeconds(Olá) = %v, want 0.375", got)
	}
	got = pipelineconfig.EstimateSpokenSeconds("Olá, mundo!", 2)
	want := 2.0/320*60 + 0.6
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("EstimateSpokenSeconds = %v, want %v", got, want)
	}
	if pipelineconfig.EstimateSpokenSeconds("   ", 1) != 0 {
		t.Fatal("blank text should estimate zero")
	}
}

func TestEstimateRenderAndFileSize(t *testing.T) {
	cfg := pipelineconfig.Default()
	if got := pipelineconfig.EstimateRender(cfg, 10); got != 40*time.Second {
		t.Fatalf("EstimateRender = %v, want 40s", got)
	}
	if got := pipelineconfig.EstimateFileSize(2*time.Second, 5000); got != 1280000 {
		t.Fatalf("EstimateFileSize = %d, want 1280000", got)
	}
	if got := pipelineconfig.FrameCount(1500*time.Millisecond, 30); got != 45 {
		t.Fatalf("FrameCount = %d, want 45", got)
	}
	if pipelineconfig.EstimateProcessing(cfg, 10) <= pipelineconfig.EstimateRender(cfg, 10) {
		t.Fatal("processing estimate should include speech and alignment")
	}
}
