package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"avatarstudio/internal/logging"
	"avatarstudio/internal/pipelineconfig"
	"avatarstudio/internal/queue"
	"avatarstudio/internal/services"
)

// Submit resolves the configuration for text, records a new job and queues it.
// Input that fails validation is recorded as a failed job and never queued; the
// returned id is valid either way. Submit never waits on stage execution.
func (m *Manager) Submit(ctx context.Context, text string, partial pipelineconfig.Partial, metadata map[string]any) (string, error) {
	now := m.now()
	job := queue.NewJob(queue.Input{
		Text:     text,
		Config:   m.resolver.Resolve(partial, text),
		Metadata: metadata,
	}, now)
	logger := logging.WithContext(services.WithJobID(ctx, job.ID), m.logger)

	if err := m.validateText(text); err != nil {
		job.SetFailed(now, jobErrorFrom(err, queue.StatusPreprocessing))
		job.RecordStage(queue.StatusPreprocessing, 0, queue.OutcomeFailed)
		if err := m.registry.Create(ctx, job); err != nil {
			return "", fmt.Errorf("create job: %w", err)
		}
		logger.Info("job rejected at submission",
			logging.String(logging.FieldEventType, "job_rejected"),
			logging.String(logging.FieldErrorCode, job.Error.Code),
			logging.String("reason", job.Error.Message),
		)
		m.monitor.ObserveStage(m.stages[0].name, 0, err)
		return job.ID, nil
	}

	if err := m.registry.Create(ctx, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	m.pending.Enqueue(job.ID)
	logger.Info("job queued",
		logging.String(logging.FieldEventType, "job_queued"),
		logging.Int("text_length", utf8.RuneCountInString(text)),
		logging.String("quality", string(job.Input.Config.Rendering.Quality)),
		logging.Int("frame_rate", job.Input.Config.Rendering.FrameRate),
		logging.Int("queue_depth", m.pending.Len()),
	)
	return job.ID, nil
}

// Cancel fails a non-terminal job with USER_CANCELLED and interrupts its
// running stage. It reports false when the job had already finished.
func (m *Manager) Cancel(ctx context.Context, id string) (bool, error) {
	now := m.now()
	job, err := m.registry.Update(ctx, id, func(j *queue.Job) error {
		j.SetFailed(now, jobErrorFrom(errCancelledByUser, j.Status))
		return nil
	})
	if errors.Is(err, queue.ErrTerminal) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	m.mu.RLock()
	interrupt := m.active[id]
	m.mu.RUnlock()
	if interrupt != nil {
		interrupt(errCancelledByUser)
	}

	logging.WithContext(services.WithJobID(ctx, id), m.logger).Info("job cancelled",
		logging.String(logging.FieldEventType, "job_cancelled"),
		logging.String("cancelled_during", string(job.Error.Stage)),
		logging.Bool("was_running", interrupt != nil),
	)
	return true, nil
}

func (m *Manager) validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return services.Validation("Text is required", nil)
	}
	limit := m.cfg.Workflow.MaxTextLength
	if n := utf8.RuneCountInString(text); limit > 0 && n > limit {
		return services.Validation(
			fmt.Sprintf("Text exceeds the %d character limit", limit),
			map[string]any{"length": n, "limit": limit},
		)
	}
	return nil
}
