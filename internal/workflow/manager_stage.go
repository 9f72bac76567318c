package workflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"avatarstudio/internal/logging"
	"avatarstudio/internal/pipelineconfig"
	"avatarstudio/internal/queue"
	"avatarstudio/internal/services"
	"avatarstudio/internal/stage"
	"avatarstudio/internal/textutil"
)

type settled struct {
	apply applyFunc
	err   error
}

// executeStage runs one stage of a job. It returns false when the job reached
// a terminal state and no further stage may run.
func (m *Manager) executeStage(ctx, store context.Context, logger *slog.Logger, idx int, budget time.Duration) bool {
	st := m.stages[idx]
	id, _ := services.JobIDFromContext(ctx)
	stageCtx := services.WithStage(ctx, st.name)
	stageLogger := logging.WithContext(stageCtx, logger)

	job, err := m.registry.Update(store, id, func(j *queue.Job) error {
		j.Status = st.status
		j.SetProgress(st.entry)
		return nil
	})
	if err != nil {
		if !errors.Is(err, queue.ErrTerminal) {
			m.setLastError(err)
			stageLogger.Error("failed to transition job to stage",
				logging.Error(err),
				logging.String(logging.FieldEventType, "job_update_failed"),
				logging.String(logging.FieldErrorHint, "check job store access"),
			)
		}
		return false
	}

	stageLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(st.status)),
		logging.Int(logging.FieldProgressPercent, job.Progress),
	)

	tracker := newProgressTracker(m, store, stageLogger, id, st)
	start := m.now()
	done := make(chan settled, 1)
	go func() {
		apply, err := st.run(m, stageCtx, job, tracker.report)
		done <- settled{apply: apply, err: err}
	}()

	var res settled
	select {
	case res = <-done:
		if ctxErr := stageCtx.Err(); ctxErr != nil {
			// A result that lands after the job context ended is not accepted.
			cause := res.err
			if cause == nil {
				cause = ctxErr
			}
			res.err = interruption(stageCtx, budget, cause)
		}
	case <-stageCtx.Done():
		res.err = interruption(stageCtx, budget, stageCtx.Err())
	}
	elapsed := m.now().Sub(start)
	m.monitor.ObserveStage(st.name, elapsed, res.err)

	outcome := queue.OutcomeSucceeded
	if res.err != nil && st.lenient && (stageCtx.Err() == nil || budgetExpired(stageCtx)) {
		res.apply = m.degrade(stageLogger, job, st, res.err)
		res.err = nil
		outcome = queue.OutcomeWarning
	}
	if res.err != nil {
		m.failJob(store, stageLogger, id, st, res.err, elapsed)
		return false
	}
	if res.apply == nil {
		m.failJob(store, stageLogger, id, st, services.StageFailure("", fmt.Sprintf("%s returned no result", st.name), nil, nil), elapsed)
		return false
	}

	next := queue.StatusCompleted
	if idx+1 < len(m.stages) {
		next = m.stages[idx+1].status
	}
	now := m.now()
	job, err = m.registry.Update(store, id, func(j *queue.Job) error {
		res.apply(j)
		j.RecordStage(st.status, elapsed, outcome)
		if next == queue.StatusCompleted {
			if j.Output == nil {
				return fmt.Errorf("%s produced no output", st.name)
			}
			j.SetCompleted(now, *j.Output)
			return nil
		}
		j.SetProgress(st.exit)
		j.Status = next
		return nil
	})
	if err != nil {
		if errors.Is(err, queue.ErrTerminal) {
			stageLogger.Debug("late stage result discarded", logging.String(logging.FieldEventType, "stage_result_discarded"))
			return false
		}
		m.setLastError(err)
		stageLogger.Error("failed to persist stage result",
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_update_failed"),
			logging.String(logging.FieldErrorHint, "check job store access"),
		)
		return false
	}

	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(job.Status)),
		logging.Int(logging.FieldProgressPercent, job.Progress),
		logging.Duration("stage_duration", elapsed),
	)
	return next != queue.StatusCompleted
}

// degrade turns a post-processing failure into a warning and delivers the
// draft output assembled from the earlier stages.
func (m *Manager) degrade(logger *slog.Logger, job *queue.Job, st pipelineStage, cause error) applyFunc {
	jobErr := jobErrorFrom(cause, st.status)
	logging.WarnWithContext(logger, "post-processing failed; delivering draft output", "postprocess_degraded",
		logging.String(logging.FieldErrorCode, jobErr.Code),
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, "check the post-processor and artifact directory"),
		logging.String(logging.FieldImpact, "video delivered without optimization or caching"),
	)
	draft := draftOutput(job)
	at := m.now().UTC()
	return func(j *queue.Job) {
		j.Warnings = append(j.Warnings, queue.Warning{Stage: st.status, Code: jobErr.Code, Message: jobErr.Message, At: at})
		out := draft
		j.Output = &out
	}
}

func draftOutput(job *queue.Job) stage.Output {
	inter := job.Intermediate
	cacheKey := ""
	if inter.Script != nil {
		cacheKey = inter.Script.CacheKey
	}
	return stage.DraftOutput(job.Input.Config, inter.Speech, inter.LipSync, inter.Render, cacheKey)
}

// progressTracker maps executor sub-progress onto the stage's checkpoint
// window and persists it. Reports that would not raise progress are dropped.
type progressTracker struct {
	m       *Manager
	ctx     context.Context
	logger  *slog.Logger
	id      string
	st      pipelineStage
	mu      sync.Mutex
	last    int
	sampler *logging.ProgressSampler
}

func newProgressTracker(m *Manager, ctx context.Context, logger *slog.Logger, id string, st pipelineStage) *progressTracker {
	return &progressTracker{m: m, ctx: ctx, logger: logger, id: id, st: st, last: st.entry, sampler: logging.NewProgressSampler(25)}
}

func (p *progressTracker) report(fraction float64) {
	percent := p.st.entry + int(fraction*float64(p.st.exit-p.st.entry))
	if percent >= p.st.exit {
		percent = p.st.exit - 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if percent <= p.last {
		return
	}
	p.last = percent
	if _, err := p.m.registry.Update(p.ctx, p.id, func(j *queue.Job) error {
		j.SetProgress(percent)
		return nil
	}); err != nil {
		return
	}
	if p.sampler.ShouldLog(p.st.name, int(fraction*100)) {
		p.logger.Debug("stage progress",
			logging.String(logging.FieldEventType, "stage_progress"),
			logging.Int(logging.FieldProgressPercent, percent),
		)
	}
}

func (m *Manager) preprocess(_ context.Context, job *queue.Job, progress stage.ProgressFunc) (applyFunc, error) {
	if err := m.validateText(job.Input.Text); err != nil {
		return nil, err
	}
	cfg := job.Input.Config
	normalized := textutil.NormalizeScript(job.Input.Text)
	key, err := cacheKey(normalized, cfg)
	if err != nil {
		return nil, services.StageFailure("", "Failed to derive cache key", nil, err)
	}
	script := queue.ScriptResult{
		NormalizedText:   normalized,
		WordCount:        pipelineconfig.CountWords(normalized),
		PunctuationCount: pipelineconfig.CountPunctuation(normalized),
		EstimatedSeconds: pipelineconfig.EstimateSpokenSeconds(normalized, cfg.TTS.Speed),
		CacheKey:         key,
	}
	progress.Report(1)
	return func(j *queue.Job) { j.Intermediate.Script = &script }, nil
}

// cacheKey fingerprints the normalized script together with the resolved
// configuration so identical requests share cached artifacts.
func cacheKey(text string, cfg pipelineconfig.Config) (string, error) {
	encoded, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	sum := sha256.New()
	sum.Write([]byte(text))
	sum.Write([]byte{0})
	sum.Write(encoded)
	return hex.EncodeToString(sum.Sum(nil))[:32], nil
}

func (m *Manager) synthesize(ctx context.Context, job *queue.Job, progress stage.ProgressFunc) (applyFunc, error) {
	script := job.Intermediate.Script
	if script == nil {
		return nil, missingInput("script")
	}
	if m.executors.Synthesizer == nil {
		return nil, missingExecutor("speech synthesizer")
	}
	cfg := job.Input.Config
	speech, err := m.executors.Synthesizer.Synthesize(ctx, stage.SynthesisRequest{
		JobID:            job.ID,
		Text:             script.NormalizedText,
		TTS:              cfg.TTS,
		LipSyncPrecision: cfg.LipSync.Precision,
		RetryAttempts:    cfg.Performance.RetryAttempts,
		Progress:         progress,
	})
	if err != nil {
		return nil, err
	}
	if speech == nil {
		return nil, services.StageFailure("", "Speech synthesis returned no audio", nil, nil)
	}
	return func(j *queue.Job) { j.Intermediate.Speech = speech }, nil
}

func (m *Manager) align(ctx context.Context, job *queue.Job, progress stage.ProgressFunc) (applyFunc, error) {
	speech := job.Intermediate.Speech
	if speech == nil {
		return nil, missingInput("speech")
	}
	if m.executors.Aligner == nil {
		return nil, missingExecutor("lip-sync aligner")
	}
	cfg := job.Input.Config
	lipSync, err := m.executors.Aligner.Align(ctx, stage.AlignmentRequest{
		JobID:         job.ID,
		AudioRef:      speech.AudioRef,
		Phonemes:      speech.Phonemes,
		Duration:      speech.Duration,
		Text:          scriptText(job),
		Emotion:       cfg.TTS.Emotion,
		LipSync:       cfg.LipSync,
		RetryAttempts: cfg.Performance.RetryAttempts,
		Progress:      progress,
	})
	if err != nil {
		return nil, err
	}
	if lipSync == nil {
		return nil, services.StageFailure("", "Lip-sync returned no keyframes", nil, nil)
	}
	return func(j *queue.Job) { j.Intermediate.LipSync = lipSync }, nil
}

func (m *Manager) render(ctx context.Context, job *queue.Job, progress stage.ProgressFunc) (applyFunc, error) {
	speech, lipSync := job.Intermediate.Speech, job.Intermediate.LipSync
	if speech == nil || lipSync == nil {
		return nil, missingInput("lip-sync")
	}
	if m.executors.Renderer == nil {
		return nil, missingExecutor("renderer")
	}
	cfg := job.Input.Config
	result, err := m.executors.Renderer.Render(ctx, stage.RenderRequest{
		JobID:         job.ID,
		Avatar:        cfg.Avatar,
		Keyframes:     lipSync.Keyframes,
		AudioRef:      speech.AudioRef,
		Duration:      speech.Duration,
		Rendering:     cfg.Rendering,
		RetryAttempts: cfg.Performance.RetryAttempts,
		Progress:      progress,
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, services.StageFailure("", "Renderer returned no video", nil, nil)
	}
	return func(j *queue.Job) { j.Intermediate.Render = result }, nil
}

func (m *Manager) postProcess(ctx context.Context, job *queue.Job, progress stage.ProgressFunc) (applyFunc, error) {
	if job.Intermediate.Render == nil || job.Intermediate.LipSync == nil {
		return nil, missingInput("render")
	}
	draft := draftOutput(job)
	if m.executors.PostProcessor == nil {
		progress.Report(1)
		return func(j *queue.Job) { j.Output = &draft }, nil
	}
	cfg := job.Input.Config
	out, err := m.executors.PostProcessor.PostProcess(ctx, stage.PostProcessRequest{
		JobID:       job.ID,
		Output:      draft,
		Rendering:   cfg.Rendering,
		Performance: cfg.Performance,
		CacheKey:    draft.Metadata.CacheKey,
		Progress:    progress,
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, services.StageFailure("", "Post-processing returned no output", nil, nil)
	}
	return func(j *queue.Job) { j.Output = out }, nil
}

func scriptText(job *queue.Job) string {
	if job.Intermediate.Script != nil {
		return job.Intermediate.Script.NormalizedText
	}
	return job.Input.Text
}

func missingInput(name string) error {
	return services.StageFailure("", fmt.Sprintf("Missing %s result from the previous stage", name), nil, nil)
}

func missingExecutor(name string) error {
	return services.StageFailure("", fmt.Sprintf("No %s configured", name), nil, nil)
}
