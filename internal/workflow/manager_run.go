package workflow

import (
	"context"
	"errors"
	"time"

	"avatarstudio/internal/logging"
	"avatarstudio/internal/pipelineconfig"
	"avatarstudio/internal/queue"
	"avatarstudio/internal/services"
)

// Start recovers jobs left by a previous run and begins dispatching.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if m.registry == nil {
		m.mu.Unlock()
		return errors.New("workflow job registry not configured")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.mu.Unlock()

	if err := m.recover(runCtx); err != nil {
		m.logger.Warn("job recovery incomplete; some jobs may need resubmission",
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_recovery_failed"),
			logging.String(logging.FieldErrorHint, "check job store access"),
			logging.String(logging.FieldImpact, "queued jobs from the previous run may not be processed"),
		)
	}

	m.wg.Add(2)
	go m.dispatch(runCtx)
	go m.sweepLoop(runCtx)
	return nil
}

// Stop terminates dispatching and waits for in-flight jobs to settle. Jobs
// interrupted by the shutdown are failed with DAEMON_STOPPED.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// dispatch claims a worker slot before taking the next job so that jobs leave
// the queue only when they can start.
func (m *Manager) dispatch(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case m.slots <- struct{}{}:
		case <-ctx.Done():
			return
		}
		id, err := m.pending.Dequeue(ctx)
		if err != nil {
			<-m.slots
			return
		}
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			defer func() { <-m.slots }()
			m.runJob(ctx, id)
		}()
	}
}

// runJob drives a single job through every stage under its time budget.
func (m *Manager) runJob(ctx context.Context, id string) {
	ctx = services.WithJobID(ctx, id)
	store := context.WithoutCancel(ctx)
	logger := logging.WithContext(ctx, m.logger)

	now := m.now()
	job, err := m.registry.Update(store, id, func(j *queue.Job) error {
		started := now.UTC()
		j.StartedAt = &started
		cfg := j.Input.Config
		if estimate := pipelineconfig.EstimateProcessing(cfg, pipelineconfig.EstimateSpokenSeconds(j.Input.Text, cfg.TTS.Speed)); estimate > 0 {
			eta := started.Add(estimate)
			j.EstimatedCompletion = &eta
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, queue.ErrTerminal):
			logger.Debug("skipping job that finished while queued")
		case errors.Is(err, services.ErrNotFound):
			logger.Debug("skipping job removed while queued")
		default:
			m.setLastError(err)
			logger.Error("failed to start job",
				logging.Error(err),
				logging.String(logging.FieldEventType, "job_start_failed"),
				logging.String(logging.FieldErrorHint, "check job store access"),
			)
		}
		return
	}

	jobCtx, interrupt := context.WithCancelCause(ctx)
	defer interrupt(nil)
	budget := time.Duration(job.Input.Config.Performance.TimeoutMs) * time.Millisecond
	if budget > 0 {
		var cancelTimeout context.CancelFunc
		jobCtx, cancelTimeout = context.WithTimeoutCause(jobCtx, budget, errBudgetExceeded)
		defer cancelTimeout()
	}
	m.setActive(id, interrupt)
	defer m.setActive(id, nil)

	m.monitor.ObserveJobStarted()
	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.Duration("time_budget", budget),
		logging.Int("queue_depth", m.pending.Len()),
	)

	for idx := range m.stages {
		if !m.executeStage(jobCtx, store, logger, idx, budget) {
			break
		}
	}

	final, err := m.registry.Get(store, id)
	if err != nil {
		logger.Warn("final job state unavailable",
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_lookup_failed"),
			logging.String(logging.FieldErrorHint, "check job store access"),
			logging.String(logging.FieldImpact, "job metrics not recorded"),
		)
		return
	}
	if !final.IsTerminal() {
		// A store write failed mid-run; fail the job rather than strand it.
		final, _ = m.failJob(store, logger, id, m.stageFor(final.Status), errDaemonStopped, 0)
		if final == nil {
			return
		}
	}
	succeeded := final.Status == queue.StatusCompleted
	m.monitor.ObserveJobFinished(succeeded, final.Metrics.Total)
	if succeeded {
		logger.Info("job completed",
			logging.String(logging.FieldEventType, "job_complete"),
			logging.Duration("total_duration", final.Metrics.Total),
			logging.Int("warnings", len(final.Warnings)),
		)
		m.notifyJobCompleted(store, final)
	}
}

func (m *Manager) stageFor(status queue.Status) pipelineStage {
	for _, st := range m.stages {
		if st.status == status {
			return st
		}
	}
	return pipelineStage{name: string(status), status: status}
}

func (m *Manager) setActive(id string, interrupt context.CancelCauseFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if interrupt == nil {
		delete(m.active, id)
		return
	}
	m.active[id] = interrupt
}

// recover re-queues jobs that were waiting when the previous run ended and
// fails the ones it left mid-stage.
func (m *Manager) recover(ctx context.Context) error {
	jobs, err := m.registry.List(ctx, queue.Filter{})
	if err != nil {
		return err
	}
	queued := make(map[string]struct{})
	for _, id := range m.pending.Snapshot() {
		queued[id] = struct{}{}
	}

	now := m.now()
	requeued, interrupted := 0, 0
	for _, job := range jobs {
		switch {
		case job.Status == queue.StatusQueued:
			if _, ok := queued[job.ID]; ok {
				continue
			}
			m.pending.Enqueue(job.ID)
			requeued++
		case job.Status.IsProcessing():
			_, err := m.registry.Update(ctx, job.ID, func(j *queue.Job) error {
				j.SetFailed(now, jobErrorFrom(errDaemonStopped, j.Status))
				return nil
			})
			if err != nil && !errors.Is(err, queue.ErrTerminal) {
				return err
			}
			interrupted++
		}
	}
	if requeued > 0 || interrupted > 0 {
		m.logger.Info("recovered jobs from previous run",
			logging.String(logging.FieldEventType, "job_recovery"),
			logging.Int("requeued", requeued),
			logging.Int("interrupted", interrupted),
		)
	}
	return nil
}
