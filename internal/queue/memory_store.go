package queue

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// MemoryStore is an in-process Registry keyed by job id.
type MemoryStore struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*Job)}
}

func (s *MemoryStore) Create(_ context.Context, job *Job) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("create job: id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("create job %s: %w", job.ID, ErrExists)
	}
	s.jobs[job.ID] = job.Clone()
	s.order = append(s.order, job.ID)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, notFound(id)
	}
	return job.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn MutateFunc) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.jobs[id]
	if !ok {
		return nil, notFound(id)
	}
	if current.IsTerminal() {
		return current.Clone(), fmt.Errorf("update job %s: %w", id, ErrTerminal)
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return current.Clone(), err
	}
	next.ID = current.ID
	s.jobs[id] = next
	return next.Clone(), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return notFound(id)
	}
	s.remove(id)
	return nil
}

func (s *MemoryStore) List(_ context.Context, filter Filter) ([]*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Job, 0, len(s.order))
	for _, id := range s.order {
		job := s.jobs[id]
		if filter.matches(job) {
			out = append(out, job.Clone())
		}
	}
	return limit(out, filter.Limit), nil
}

func (s *MemoryStore) DeleteTerminalBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []string
	for _, id := range s.order {
		job := s.jobs[id]
		if job.IsTerminal() && job.EndedAt != nil && job.EndedAt.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		s.remove(id)
	}
	return len(expired), nil
}

func (s *MemoryStore) Stats(_ context.Context) (map[Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := make(map[Status]int)
	for _, job := range s.jobs {
		stats[job.Status]++
	}
	return stats, nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) remove(id string) {
	delete(s.jobs, id)
	if idx := slices.Index(s.order, id); idx >= 0 {
		s.order = slices.Delete(s.order, idx, idx+1)
	}
}
