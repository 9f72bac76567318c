package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"avatarstudio/internal/logging"
	"avatarstudio/internal/queue"
	"avatarstudio/internal/services"
)

// jobErrorFrom classifies err into the error stamped on a failed job. The
// orchestrator alone decides the stage.
func jobErrorFrom(err error, failedAt queue.Status) queue.JobError {
	details := services.Details(err)
	message := details.Message
	if message == "" && err != nil {
		message = strings.TrimSpace(err.Error())
	}
	if message == "" {
		message = fmt.Sprintf("%s failed", deriveStageLabel(failedAt))
	}
	code := details.Code
	if code == "" {
		code = services.CodeStageFailed
	}
	return queue.JobError{
		Message: message,
		Code:    code,
		Stage:   failedAt,
		Details: details.Details,
	}
}

// failJob moves the job to failed at stage st. It reports whether this call
// performed the transition; a job that was already terminal is left alone.
func (m *Manager) failJob(ctx context.Context, logger *slog.Logger, id string, st pipelineStage, stageErr error, elapsed time.Duration) (*queue.Job, bool) {
	jobErr := jobErrorFrom(stageErr, st.status)
	now := m.now()
	job, err := m.registry.Update(ctx, id, func(j *queue.Job) error {
		j.RecordStage(st.status, elapsed, queue.OutcomeFailed)
		j.SetFailed(now, jobErr)
		return nil
	})
	if err != nil {
		if errors.Is(err, queue.ErrTerminal) {
			logger.Debug("stage result discarded for terminal job", logging.Error(stageErr))
			return job, false
		}
		m.setLastError(err)
		logger.Error("failed to persist stage failure",
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_update_failed"),
			logging.String(logging.FieldErrorHint, "check job store access"),
		)
		return nil, false
	}

	details := services.Details(stageErr)
	attrs := []logging.Attr{
		logging.String("resolved_status", string(queue.StatusFailed)),
		logging.String("error_message", jobErr.Message),
		logging.Alert("stage_failure"),
		logging.String(logging.FieldErrorCode, jobErr.Code),
		logging.String("error_kind", string(details.Kind)),
		logging.Duration("stage_duration", elapsed),
	}
	if details.Cause != nil {
		attrs = append(attrs, logging.Error(details.Cause))
	} else {
		attrs = append(attrs, logging.Error(stageErr))
	}
	logging.ErrorWithContext(logger, "stage failed", "stage_failure", attrs...)

	m.setLastError(stageErr)
	m.notifyJobFailed(ctx, job)
	return job, true
}

// interruption converts the end of a job context into the failure it
// represents: the job budget running out, a user cancel, or daemon shutdown.
func interruption(ctx context.Context, budget time.Duration, cause error) error {
	switch {
	case errors.Is(context.Cause(ctx), errCancelledByUser):
		return errCancelledByUser
	case errors.Is(context.Cause(ctx), errBudgetExceeded):
		return services.Timeout(fmt.Sprintf("Job exceeded its %s time budget", budget), cause)
	case ctx.Err() != nil:
		return errDaemonStopped
	default:
		return cause
	}
}

var errBudgetExceeded = errors.New("job time budget exceeded")

// budgetExpired reports whether ctx ended because the job ran out of time
// rather than through a user cancel or daemon shutdown.
func budgetExpired(ctx context.Context) bool {
	return ctx.Err() != nil && errors.Is(context.Cause(ctx), errBudgetExceeded)
}
