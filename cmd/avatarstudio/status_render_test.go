package main

import (
	"fmt"
	"strings"
	"testing"

	"avatarstudio/internal/api"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Workflow", statusError, "Stopped", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Workflow:", "[ERROR] Stopped")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Workflow", statusOK, "Running", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestJobRowsSummarizeOutcome(t *testing.T) {
	jobs := []api.Job{
		{ID: "job_a", Status: "completed", Progress: 100, Output: &api.JobOutput{DurationMs: 4200, FileSize: 3 << 20}},
		{ID: "job_b", Status: "failed", Progress: 35, Error: &api.JobError{Code: "TTS_FAILED", Message: "voice unavailable"}},
		{ID: "job_c", Status: "queued"},
	}
	rows := jobRows(jobs, false)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][4] != "4.2s, 3.0 MiB" {
		t.Fatalf("unexpected completed detail %q", rows[0][4])
	}
	if rows[1][4] != "TTS_FAILED: voice unavailable" {
		t.Fatalf("unexpected failed detail %q", rows[1][4])
	}
	if rows[2][2] != "0%" || rows[2][3] != "-" {
		t.Fatalf("unexpected queued row %v", rows[2])
	}
}

func TestTruncateKeepsRunes(t *testing.T) {
	if got := truncate("Olá mundo", 4); got != "Olá…" {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("unexpected truncation %q", got)
	}
}
