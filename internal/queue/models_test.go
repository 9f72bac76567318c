package queue_test

import (
	"strings"
	"testing"
	"time"

	"avatarstudio/internal/queue"
	"avatarstudio/internal/stage"
)

func TestParseStatus(t *testing.T) {
	if status, ok := queue.ParseStatus(" Lip_Sync "); !ok || status != queue.StatusLipSync {
		t.Fatalf("expected lip_sync, got %q %v", status, ok)
	}
	if _, ok := queue.ParseStatus("review"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
	for _, status := range queue.AllStatuses() {
		if status.IsTerminal() && status.IsProcessing() {
			t.Fatalf("%s cannot be both terminal and processing", status)
		}
	}
}

func TestNewJobID(t *testing.T) {
	a, b := queue.NewJobID(), queue.NewJobID()
	if !strings.HasPrefix(a, "job_") || a == b {
		t.Fatalf("unexpected ids %q %q", a, b)
	}
}

func TestSetProgressNeverRegresses(t *testing.T) {
	job := &queue.Job{}
	job.SetProgress(40)
	job.SetProgress(20)
	if job.Progress != 40 {
		t.Fatalf("expected 40, got %d", job.Progress)
	}
	job.SetProgress(140)
	if job.Progress != 100 {
		t.Fatalf("expected clamp to 100, got %d", job.Progress)
	}
}

func TestTerminalTransitionsKeepOutputAndErrorExclusive(t *testing.T) {
	now := time.Now()
	started := now.Add(-time.Second)
	job := &queue.Job{Status: queue.StatusRendering, StartedAt: &started}
	job.SetCompleted(now, stage.Output{VideoURL: "v"})
	if job.Output == nil || job.Error != nil || job.Progress != 100 || job.EndedAt == nil {
		t.Fatalf("unexpected completed job: %+v", job)
	}
	if job.Metrics.Total != time.Second {
		t.Fatalf("expected total 1s, got %s", job.Metrics.Total)
	}

	failed := &queue.Job{Status: queue.StatusTTSGeneration, Output: &stage.Output{}}
	failed.SetFailed(now, queue.JobError{Message: "x", Code: "STAGE_FAILED", Stage: queue.StatusTTSGeneration})
	if failed.Output != nil || failed.Error == nil || failed.Status != queue.StatusFailed {
		t.Fatalf("unexpected failed job: %+v", failed)
	}
}

func TestCloneIsDeep(t *testing.T) {
	job := &queue.Job{
		Input:        queue.Input{Metadata: map[string]any{"k": "v"}},
		Intermediate: queue.Intermediate{LipSync: &stage.LipSyncResult{Keyframes: []stage.Keyframe{{Viseme: "A"}}}},
		Warnings:     []queue.Warning{{Message: "w"}},
	}
	clone := job.Clone()
	clone.Input.Metadata["k"] = "changed"
	clone.Intermediate.LipSync.Keyframes[0].Viseme = "B"
	clone.Warnings[0].Message = "changed"
	if job.Input.Metadata["k"] != "v" || job.Intermediate.LipSync.Keyframes[0].Viseme != "A" || job.Warnings[0].Message != "w" {
		t.Fatalf("clone shares state with original: %+v", job)
	}
}
