package stage_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"avatarstudio/internal/pipelineconfig"
	"avatarstudio/internal/services"
	"avatarstudio/internal/stage"
)

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := stage.Retry(context.Background(), 2, 0, func(context.Context, int) error {
		calls++
		if calls < 2 {
			return errors.New("flaky")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := stage.Retry(context.Background(), 2, 0, func(context.Context, int) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetrySkipsFinalFailures(t *testing.T) {
	for _, final := range []error{
		services.Validation("bad input", nil),
		services.Cancelled("stop"),
		context.DeadlineExceeded,
	} {
		calls := 0
		_ = stage.Retry(context.Background(), 5, 0, func(context.Context, int) error {
			calls++
			return final
		})
		if calls != 1 {
			t.Fatalf("%v retried %d times", final, calls)
		}
	}
}

func TestRetryHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := stage.Retry(ctx, 3, 0, func(context.Context, int) error {
		calls++
		return nil
	})
	if !errors.Is(err, services.ErrCancelled) || services.Details(err).Code != services.CodeCancelled {
		t.Fatalf("expected classified cancellation, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("fn should not run on a cancelled context")
	}
}

func TestRetryClassifiesExpiredDeadline(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	err := stage.Retry(ctx, 1, 0, func(context.Context, int) error { return nil })
	if !errors.Is(err, services.ErrTimeout) || services.Details(err).Code != services.CodeTimeout {
		t.Fatalf("expected classified timeout, got %v", err)
	}
}

type checkedRenderer struct{ ready bool }

func (checkedRenderer) Render(context.Context, stage.RenderRequest) (*stage.RenderResult, error) {
	return &stage.RenderResult{}, nil
}

func (r checkedRenderer) HealthCheck(context.Context) stage.Health {
	if r.ready {
		return stage.Healthy("")
	}
	return stage.Unhealthy("", "gpu unavailable")
}

func TestCheck(t *testing.T) {
	ctx := context.Background()
	if h := stage.Check(ctx, "rendering", nil); h.Ready {
		t.Fatal("nil executor must be unhealthy")
	}
	h := stage.Check(ctx, "rendering", checkedRenderer{ready: false})
	if h.Ready || h.Name != "rendering" || h.Detail != "gpu unavailable" {
		t.Fatalf("unexpected health: %+v", h)
	}
	if h := stage.Check(ctx, "rendering", struct{}{}); !h.Ready {
		t.Fatal("executor without health check should be ready")
	}
}

func TestProgressReportClamps(t *testing.T) {
	var got []float64
	fn := stage.ProgressFunc(func(f float64) { got = append(got, f) })
	fn.Report(-1)
	fn.Report(0.5)
	fn.Report(3)
	if len(got) != 3 || got[0] != 0 || got[1] != 0.5 || got[2] != 1 {
		t.Fatalf("unexpected reports: %v", got)
	}
	var nilFn stage.ProgressFunc
	nilFn.Report(0.5)
}

func TestDraftOutputFromResults(t *testing.T) {
	cfg := pipelineconfig.Default()
	speech := &stage.SpeechResult{AudioRef: "audio.aac", Duration: 2 * time.Second, Quality: 0.9}
	lip := &stage.LipSyncResult{Confidence: 0.6}
	render := &stage.RenderResult{VideoRef: "video.mp4", ThumbnailRef: "thumb.jpg", FileSize: 1024}

	out := stage.DraftOutput(cfg, speech, lip, render, "key")
	if out.VideoURL != "video.mp4" || out.AudioURL != "audio.aac" || out.ThumbnailURL != "thumb.jpg" {
		t.Fatalf("unexpected refs: %+v", out)
	}
	if out.Duration != 2*time.Second || out.FileSize != 1024 {
		t.Fatalf("unexpected duration/size: %s %d", out.Duration, out.FileSize)
	}
	meta := out.Metadata
	if meta.Version != "2.0" || meta.Pipeline != "unified-avatar-pipeline" || meta.CacheKey != "key" {
		t.Fatalf("unexpected metadata header: %+v", meta)
	}
	if meta.Technical.AudioSampleRate != 44100 || meta.Technical.AudioCodec != "aac" || meta.Technical.VideoCodec != "h264" {
		t.Fatalf("unexpected technical block: %+v", meta.Technical)
	}
	wantOverall := (0.9 + 0.6 + 0.8) / 3
	if math.Abs(meta.Quality.Overall-wantOverall) > 1e-9 {
		t.Fatalf("overall = %f, want %f", meta.Quality.Overall, wantOverall)
	}
}

func TestDraftOutputDefaultsMissingScores(t *testing.T) {
	out := stage.DraftOutput(pipelineconfig.Default(), &stage.SpeechResult{}, nil, nil, "")
	if out.Metadata.Quality.TTS != 0.8 || out.Metadata.Quality.LipSync != 0.8 {
		t.Fatalf("expected default 0.8 scores, got %+v", out.Metadata.Quality)
	}
}
