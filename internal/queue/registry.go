package queue

import (
	"context"
	"fmt"
	"time"

	"avatarstudio/internal/config"
)

// MutateFunc edits a job in place inside Update. Returning an error aborts the
// write and leaves the stored record untouched.
type MutateFunc func(*Job) error

// Registry owns the canonical state of every job. Reads return copies so
// callers never observe a partially written record.
type Registry interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	// Update applies fn atomically and returns the stored result. Terminal jobs
	// reject updates with ErrTerminal.
	Update(ctx context.Context, id string, fn MutateFunc) (*Job, error)
	Delete(ctx context.Context, id string) error
	// List returns matching jobs in creation order.
	List(ctx context.Context, filter Filter) ([]*Job, error)
	// DeleteTerminalBefore removes completed and failed jobs that ended before
	// cutoff and reports how many were removed.
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int, error)
	Stats(ctx context.Context) (map[Status]int, error)
	Close() error
}

// Open returns the registry backend selected by workflow.store.
func Open(cfg *config.Config) (Registry, error) {
	switch cfg.Workflow.Store {
	case config.StoreMemory:
		return NewMemoryStore(), nil
	case config.StoreSQLite, "":
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, fmt.Errorf("ensure directories: %w", err)
		}
		return OpenSQLite(cfg.DatabasePath())
	default:
		return nil, fmt.Errorf("unsupported job store %q", cfg.Workflow.Store)
	}
}

func limit(jobs []*Job, n int) []*Job {
	if n > 0 && len(jobs) > n {
		return jobs[:n]
	}
	return jobs
}
