package workflow

import (
	"context"

	"avatarstudio/internal/logging"
	"avatarstudio/internal/queue"
	"avatarstudio/internal/stage"
)

// Status returns the read-only projection of a job. Unknown ids yield a
// services.ErrNotFound error.
func (m *Manager) Status(ctx context.Context, id string) (StatusView, error) {
	job, err := m.registry.Get(ctx, id)
	if err != nil {
		return StatusView{}, err
	}
	return viewOf(job), nil
}

// List returns job projections in submission order.
func (m *Manager) List(ctx context.Context, filter queue.Filter) ([]StatusView, error) {
	jobs, err := m.registry.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]StatusView, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, viewOf(job))
	}
	return out, nil
}

// QueueDepth reports how many jobs wait for a worker slot.
func (m *Manager) QueueDepth() int {
	return m.pending.Len()
}

// ActiveJobs reports how many jobs are running a stage.
func (m *Manager) ActiveJobs() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}

// Summary returns the latest workflow information.
func (m *Manager) Summary(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	active := len(m.active)
	m.mu.RUnlock()

	stats, err := m.registry.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read job stats",
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_stats_failed"),
			logging.String(logging.FieldErrorHint, "check job store access"),
			logging.String(logging.FieldImpact, "summary job counts are empty"),
		)
	}

	summary := StatusSummary{
		Running:    running,
		QueueDepth: m.pending.Len(),
		ActiveJobs: active,
		Slots:      cap(m.slots),
		Jobs:       queue.Summarize(stats),
		Stages:     m.StageHealth(ctx),
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	return summary
}

// StageHealth reports the readiness of every configured executor.
func (m *Manager) StageHealth(ctx context.Context) []stage.Health {
	executors := []struct {
		name     string
		executor any
	}{
		{"tts", m.executors.Synthesizer},
		{"lipsync", m.executors.Aligner},
		{"renderer", m.executors.Renderer},
	}
	out := make([]stage.Health, 0, len(executors)+1)
	for _, e := range executors {
		out = append(out, stage.Check(ctx, e.name, e.executor))
	}
	if m.executors.PostProcessor == nil {
		out = append(out, stage.Healthy("postprocess"))
	} else {
		out = append(out, stage.Check(ctx, "postprocess", m.executors.PostProcessor))
	}
	return out
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
