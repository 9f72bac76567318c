package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/dustin/go-humanize"

	"avatarstudio/internal/logging"
	"avatarstudio/internal/notifications"
	"avatarstudio/internal/queue"
	"avatarstudio/internal/services"
)

func (m *Manager) notifyJobFailed(ctx context.Context, job *queue.Job) {
	if m.notifier == nil || job == nil || job.Error == nil {
		return
	}
	m.publish(ctx, job.ID, notifications.EventJobFailed, notifications.Payload{
		"jobId": job.ID,
		"stage": deriveStageLabel(job.Error.Stage),
		"code":  job.Error.Code,
		"error": job.Error.Message,
	})
}

func (m *Manager) notifyJobCompleted(ctx context.Context, job *queue.Job) {
	if m.notifier == nil || job == nil || job.Output == nil {
		return
	}
	m.publish(ctx, job.ID, notifications.EventJobCompleted, notifications.Payload{
		"jobId":    job.ID,
		"duration": job.Output.Duration.Round(100 * time.Millisecond).String(),
		"size":     humanize.IBytes(uint64(max(job.Output.FileSize, 0))),
	})
}

func (m *Manager) publish(ctx context.Context, id string, event notifications.Event, payload notifications.Payload) {
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		logger := logging.WithContext(services.WithJobID(ctx, id), m.logger)
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not send notification")
			return
		}
		logger.Debug("job notification failed", logging.Error(err), logging.String("event", string(event)))
	}
}
