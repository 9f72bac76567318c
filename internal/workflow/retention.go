package workflow

import (
	"context"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"avatarstudio/internal/artifacts"
	"avatarstudio/internal/logging"
	"avatarstudio/internal/queue"
)

// SweepResult reports one retention pass.
type SweepResult struct {
	JobsRemoved      int
	ArtifactsRemoved int
	BytesReclaimed   int64
}

func (m *Manager) sweepLoop(ctx context.Context) {
	defer m.wg.Done()
	retention := m.cfg.Retention()
	interval := m.cfg.RetentionSweepInterval()
	if retention <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Sweep(ctx); err != nil && ctx.Err() == nil {
				m.logger.Warn("retention sweep failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "retention_sweep_failed"),
					logging.String(logging.FieldErrorHint, "check job store access"),
					logging.String(logging.FieldImpact, "expired jobs kept until the next sweep"),
				)
			}
		}
	}
}

// Sweep deletes terminal jobs that ended before the retention window and
// removes artifact directories no registered job owns.
func (m *Manager) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	retention := m.cfg.Retention()
	if retention <= 0 {
		return result, nil
	}
	cutoff := m.now().Add(-retention)
	removed, err := m.registry.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		return result, err
	}
	result.JobsRemoved = removed

	remaining, err := m.registry.List(ctx, queue.Filter{})
	if err != nil {
		return result, err
	}
	owned := make(map[string]struct{}, len(remaining))
	for _, job := range remaining {
		owned[filepath.Base(m.layout.JobDir(job.ID))] = struct{}{}
	}
	cleaned := artifacts.CleanOrphaned(ctx, m.layout.Root, owned, cutoff, m.logger)
	result.ArtifactsRemoved = len(cleaned.Removed)
	result.BytesReclaimed = cleaned.BytesReclaimed

	if result.JobsRemoved > 0 || result.ArtifactsRemoved > 0 {
		m.logger.Info("retention sweep removed expired jobs",
			logging.String(logging.FieldEventType, "retention_sweep"),
			logging.Int("jobs_removed", result.JobsRemoved),
			logging.Int("artifacts_removed", result.ArtifactsRemoved),
			logging.String("reclaimed", humanize.IBytes(uint64(result.BytesReclaimed))),
			logging.Duration("retention", retention),
		)
	}
	return result, nil
}
