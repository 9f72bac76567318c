package logging_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"avatarstudio/internal/config"
	"avatarstudio/internal/logging"
	"avatarstudio/internal/services"
)

func TestNewFromConfigConsole(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from config")

	if _, err := os.Stat(filepath.Join(cfg.Paths.LogDir, "avatarstudio.log")); err != nil {
		t.Fatalf("expected log file: %v", err)
	}
}

func newFileLogger(t *testing.T, format, level string) (*slog.Logger, func() string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.log")
	logger, err := logging.New(logging.Options{Format: format, Level: level, OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return logger, func() string {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read log file: %v", err)
		}
		return string(data)
	}
}

func TestConsoleLoggerOmitsSourceForInfo(t *testing.T) {
	logger, read := newFileLogger(t, "console", "info")
	logger.Info("message without caller")
	if strings.Contains(read(), ".go:") {
		t.Fatalf("expected no caller information in info logs")
	}
}

func TestConsoleLoggerIncludesSourceForDebug(t *testing.T) {
	logger, read := newFileLogger(t, "console", "debug")
	logger.Debug("message with caller")
	if !strings.Contains(read(), ".go:") {
		t.Fatalf("expected caller information in debug logs")
	}
}

func TestConsoleLoggerSubjectAndFields(t *testing.T) {
	logger, read := newFileLogger(t, "console", "info")
	ctx := services.WithStage(services.WithJobID(context.Background(), "job_1"), "rendering")
	logging.WithContext(ctx, logger).Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Int64("file_size_bytes", 2048),
	)
	out := read()
	for _, want := range []string{"Job job_1 (rendering)", "stage completed", "Event: stage_complete", "File Size: 2.0 KiB"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	logger, read := newFileLogger(t, "json", "info")
	ctx := context.Background()
	ctx = services.WithJobID(ctx, "job_123")
	ctx = services.WithStage(ctx, "tts_generation")
	ctx = services.WithRequestID(ctx, "req-xyz")

	logging.WithContext(ctx, logger).Info("contextual log")

	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(read())), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	for key, want := range map[string]string{
		logging.FieldJobID:         "job_123",
		logging.FieldStage:         "tts_generation",
		logging.FieldCorrelationID: "req-xyz",
		"msg":                      "contextual log",
		"level":                    "info",
	} {
		if got, _ := record[key].(string); got != want {
			t.Fatalf("field %s = %q, want %q", key, got, want)
		}
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logger, read := newFileLogger(t, "json", "info")
	logging.WarnWithContext(logger, "post-processing failed", "postprocess_failed", logging.String(logging.FieldImpact, "draft output kept"))

	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(read())), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record[logging.FieldEventType] != "postprocess_failed" {
		t.Fatalf("unexpected event type %v", record[logging.FieldEventType])
	}
	if record[logging.FieldErrorHint] == nil {
		t.Fatal("expected default error hint")
	}
	if record[logging.FieldImpact] != "draft output kept" {
		t.Fatalf("explicit impact overwritten: %v", record[logging.FieldImpact])
	}
}
