package queue_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"avatarstudio/internal/pipelineconfig"
	"avatarstudio/internal/queue"
	"avatarstudio/internal/services"
	"avatarstudio/internal/stage"
)

func backends(t *testing.T) map[string]func(t *testing.T) queue.Registry {
	t.Helper()
	return map[string]func(t *testing.T) queue.Registry{
		"memory": func(t *testing.T) queue.Registry {
			return queue.NewMemoryStore()
		},
		"sqlite": func(t *testing.T) queue.Registry {
			store, err := queue.OpenSQLite(filepath.Join(t.TempDir(), "jobs.db"))
			if err != nil {
				t.Fatalf("OpenSQLite: %v", err)
			}
			t.Cleanup(func() { _ = store.Close() })
			return store
		},
	}
}

func newJob(text string) *queue.Job {
	return queue.NewJob(queue.Input{
		Text:     text,
		Config:   pipelineconfig.Default(),
		Metadata: map[string]any{"project": "demo"},
	}, time.Now())
}

func TestRegistryCreateGetReturnsCopy(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			reg := open(t)
			job := newJob("hello world")
			if err := reg.Create(ctx, job); err != nil {
				t.Fatalf("Create: %v", err)
			}
			if err := reg.Create(ctx, job); !errors.Is(err, queue.ErrExists) {
				t.Fatalf("expected ErrExists on duplicate create, got %v", err)
			}

			got, err := reg.Get(ctx, job.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Status != queue.StatusQueued || got.Progress != 0 {
				t.Fatalf("unexpected initial state: %s %d", got.Status, got.Progress)
			}
			if got.Input.Text != "hello world" || got.Input.Config.TTS.Provider != pipelineconfig.ProviderElevenLabs {
				t.Fatalf("input not persisted: %+v", got.Input)
			}
			got.Input.Metadata["project"] = "mutated"
			again, _ := reg.Get(ctx, job.ID)
			if again.Input.Metadata["project"] != "demo" {
				t.Fatalf("Get returned shared state: %v", again.Input.Metadata)
			}
		})
	}
}

func TestRegistryGetUnknownIsNotFound(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			reg := open(t)
			if _, err := reg.Get(context.Background(), "job_missing"); !errors.Is(err, services.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if err := reg.Delete(context.Background(), "job_missing"); !errors.Is(err, services.ErrNotFound) {
				t.Fatalf("expected ErrNotFound on delete, got %v", err)
			}
		})
	}
}

func TestRegistryUpdateRoundTripsStageResults(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			reg := open(t)
			job := newJob("round trip")
			if err := reg.Create(ctx, job); err != nil {
				t.Fatalf("Create: %v", err)
			}
			started := time.Now().UTC()
			_, err := reg.Update(ctx, job.ID, func(j *queue.Job) error {
				j.Status = queue.StatusLipSync
				j.StartedAt = &started
				j.SetProgress(35)
				j.Intermediate.Speech = &stage.SpeechResult{
					AudioRef: "audio://a",
					Phonemes: []stage.Phoneme{{Symbol: "o", Start: 0, End: 100 * time.Millisecond}},
					Duration: 1500 * time.Millisecond,
					Quality:  0.9,
				}
				j.RecordStage(queue.StatusTTSGeneration, 20*time.Millisecond, queue.OutcomeSucceeded)
				return nil
			})
			if err != nil {
				t.Fatalf("Update: %v", err)
			}

			got, err := reg.Get(ctx, job.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Status != queue.StatusLipSync || got.Progress != 35 {
				t.Fatalf("unexpected state after update: %s %d", got.Status, got.Progress)
			}
			if got.Intermediate.Speech == nil || got.Intermediate.Speech.Duration != 1500*time.Millisecond {
				t.Fatalf("speech result not persisted: %+v", got.Intermediate.Speech)
			}
			if len(got.Intermediate.Speech.Phonemes) != 1 {
				t.Fatalf("expected 1 phoneme, got %d", len(got.Intermediate.Speech.Phonemes))
			}
			if got.StartedAt == nil || !got.StartedAt.Equal(started) {
				t.Fatalf("started_at mismatch: %v vs %v", got.StartedAt, started)
			}
			if len(got.Metrics.Stages) != 1 || got.Metrics.Stages[0].Outcome != queue.OutcomeSucceeded {
				t.Fatalf("metrics not persisted: %+v", got.Metrics)
			}
		})
	}
}

func TestRegistryUpdateAbortsOnMutateError(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			reg := open(t)
			job := newJob("abort")
			if err := reg.Create(ctx, job); err != nil {
				t.Fatalf("Create: %v", err)
			}
			boom := errors.New("boom")
			_, err := reg.Update(ctx, job.ID, func(j *queue.Job) error {
				j.Status = queue.StatusRendering
				return boom
			})
			if !errors.Is(err, boom) {
				t.Fatalf("expected mutate error, got %v", err)
			}
			got, _ := reg.Get(ctx, job.ID)
			if got.Status != queue.StatusQueued {
				t.Fatalf("aborted update leaked: %s", got.Status)
			}
		})
	}
}

func TestRegistryTerminalJobsRejectUpdates(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			reg := open(t)
			job := newJob("terminal")
			if err := reg.Create(ctx, job); err != nil {
				t.Fatalf("Create: %v", err)
			}
			if _, err := reg.Update(ctx, job.ID, func(j *queue.Job) error {
				j.SetFailed(time.Now(), queue.JobError{Message: "cancelled", Code: services.CodeCancelled, Stage: queue.StatusQueued})
				return nil
			}); err != nil {
				t.Fatalf("fail update: %v", err)
			}
			stored, err := reg.Update(ctx, job.ID, func(j *queue.Job) error {
				j.SetCompleted(time.Now(), stage.Output{VideoURL: "late"})
				return nil
			})
			if !errors.Is(err, queue.ErrTerminal) {
				t.Fatalf("expected ErrTerminal, got %v", err)
			}
			if stored == nil || stored.Status != queue.StatusFailed || stored.Output != nil {
				t.Fatalf("terminal job changed: %+v", stored)
			}
			if stored.Error == nil || stored.Error.Code != services.CodeCancelled {
				t.Fatalf("expected cancellation error, got %+v", stored.Error)
			}
		})
	}
}

func TestRegistryListPreservesCreationOrder(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			reg := open(t)
			var ids []string
			for _, text := range []string{"a", "b", "c"} {
				job := newJob(text)
				if err := reg.Create(ctx, job); err != nil {
					t.Fatalf("Create: %v", err)
				}
				ids = append(ids, job.ID)
			}
			if _, err := reg.Update(ctx, ids[1], func(j *queue.Job) error {
				j.Status = queue.StatusRendering
				return nil
			}); err != nil {
				t.Fatalf("Update: %v", err)
			}

			all, err := reg.List(ctx, queue.Filter{})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(all) != 3 {
				t.Fatalf("expected 3 jobs, got %d", len(all))
			}
			for i, job := range all {
				if job.ID != ids[i] {
					t.Fatalf("position %d: expected %s, got %s", i, ids[i], job.ID)
				}
			}

			queued, err := reg.List(ctx, queue.Filter{Statuses: []queue.Status{queue.StatusQueued}, Limit: 1})
			if err != nil {
				t.Fatalf("List queued: %v", err)
			}
			if len(queued) != 1 || queued[0].ID != ids[0] {
				t.Fatalf("unexpected filtered list: %+v", queued)
			}

			stats, err := reg.Stats(ctx)
			if err != nil {
				t.Fatalf("Stats: %v", err)
			}
			summary := queue.Summarize(stats)
			if summary.Total != 3 || summary.Queued != 2 || summary.Processing != 1 {
				t.Fatalf("unexpected summary: %+v", summary)
			}
		})
	}
}

func TestRegistryDeleteTerminalBefore(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			reg := open(t)
			old := newJob("old")
			fresh := newJob("fresh")
			running := newJob("running")
			for _, job := range []*queue.Job{old, fresh, running} {
				if err := reg.Create(ctx, job); err != nil {
					t.Fatalf("Create: %v", err)
				}
			}
			now := time.Now()
			finish := func(id string, at time.Time) {
				if _, err := reg.Update(ctx, id, func(j *queue.Job) error {
					j.SetCompleted(at, stage.Output{VideoURL: "video"})
					return nil
				}); err != nil {
					t.Fatalf("complete %s: %v", id, err)
				}
			}
			finish(old.ID, now.Add(-48*time.Hour))
			finish(fresh.ID, now.Add(-time.Hour))

			removed, err := reg.DeleteTerminalBefore(ctx, now.Add(-24*time.Hour))
			if err != nil {
				t.Fatalf("DeleteTerminalBefore: %v", err)
			}
			if removed != 1 {
				t.Fatalf("expected 1 removed job, got %d", removed)
			}
			if _, err := reg.Get(ctx, old.ID); !errors.Is(err, services.ErrNotFound) {
				t.Fatalf("expected old job removed, got %v", err)
			}
			for _, id := range []string{fresh.ID, running.ID} {
				if _, err := reg.Get(ctx, id); err != nil {
					t.Fatalf("expected %s retained: %v", id, err)
				}
			}
		})
	}
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "jobs.db")
	store, err := queue.OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	job := newJob("persisted")
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := queue.OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.Input.Text != "persisted" || !got.CreatedAt.Equal(job.CreatedAt) {
		t.Fatalf("unexpected job after reopen: %+v", got)
	}
}
