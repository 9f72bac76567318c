package testsupport

import (
	"context"
	"testing"
	"time"

	"avatarstudio/internal/config"
	"avatarstudio/internal/queue"
)

// MustOpenRegistry opens the configured job registry and registers cleanup.
func MustOpenRegistry(t testing.TB, cfg *config.Config) queue.Registry {
	t.Helper()

	registry, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		registry.Close()
	})
	return registry
}

// WaitForJob polls the registry until the job satisfies done or the timeout
// elapses, returning the last observed state.
func WaitForJob(t testing.TB, registry queue.Registry, id string, timeout time.Duration, done func(*queue.Job) bool) *queue.Job {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		job, err := registry.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("get job %s: %v", id, err)
		}
		if done(job) {
			return job
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %s still %s after %s", id, job.Status, timeout)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// WaitForTerminal waits until the job completes or fails.
func WaitForTerminal(t testing.TB, registry queue.Registry, id string) *queue.Job {
	t.Helper()
	return WaitForJob(t, registry, id, 5*time.Second, (*queue.Job).IsTerminal)
}
