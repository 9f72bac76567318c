package queue

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"avatarstudio/internal/pipelineconfig"
	"avatarstudio/internal/stage"
)

// Status represents the lifecycle of a render job.
type Status string

const (
	StatusQueued         Status = "queued"
	StatusPreprocessing  Status = "preprocessing"
	StatusTTSGeneration  Status = "tts_generation"
	StatusLipSync        Status = "lip_sync"
	StatusRendering      Status = "rendering"
	StatusPostProcessing Status = "post_processing"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
)

// DaemonStopReason is the error message set on jobs interrupted by a daemon restart.
const DaemonStopReason = "Daemon stopped"

// CodeInterrupted is the error code set on jobs interrupted by a daemon restart.
const CodeInterrupted = "DAEMON_STOPPED"

var allStatuses = []Status{
	StatusQueued,
	StatusPreprocessing,
	StatusTTSGeneration,
	StatusLipSync,
	StatusRendering,
	StatusPostProcessing,
	StatusCompleted,
	StatusFailed,
}

var processingStatuses = map[Status]struct{}{
	StatusPreprocessing:  {},
	StatusTTSGeneration:  {},
	StatusLipSync:        {},
	StatusRendering:      {},
	StatusPostProcessing: {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	return slices.Clone(allStatuses)
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	return normalized, slices.Contains(allStatuses, normalized)
}

// IsTerminal reports whether the status is completed or failed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsProcessing reports whether the status reflects a running stage.
func (s Status) IsProcessing() bool {
	_, ok := processingStatuses[s]
	return ok
}

// NewJobID returns a fresh opaque job identifier.
func NewJobID() string {
	return "job_" + uuid.NewString()
}

// Input is the immutable submission payload.
type Input struct {
	Text     string                `json:"text"`
	Config   pipelineconfig.Config `json:"config"`
	Metadata map[string]any        `json:"metadata,omitempty"`
}

// ScriptResult is the preprocessing output.
type ScriptResult struct {
	NormalizedText   string  `json:"normalizedText"`
	WordCount        int     `json:"wordCount"`
	PunctuationCount int     `json:"punctuationCount"`
	EstimatedSeconds float64 `json:"estimatedSeconds"`
	CacheKey         string  `json:"cacheKey"`
}

// Intermediate holds stage outputs. Each field is written once by its stage.
type Intermediate struct {
	Script  *ScriptResult        `json:"script,omitempty"`
	Speech  *stage.SpeechResult  `json:"speech,omitempty"`
	LipSync *stage.LipSyncResult `json:"lipSync,omitempty"`
	Render  *stage.RenderResult  `json:"render,omitempty"`
}

// JobError describes why a job failed.
type JobError struct {
	Message string         `json:"message"`
	Code    string         `json:"code"`
	Stage   Status         `json:"stage"`
	Details map[string]any `json:"details,omitempty"`
}

// Warning records a non-fatal stage problem.
type Warning struct {
	Stage   Status    `json:"stage"`
	Code    string    `json:"code,omitempty"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Outcome is the settled result of one stage invocation.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeWarning   Outcome = "warning"
)

// StageMetric is the timing of one settled stage.
type StageMetric struct {
	Stage   Status        `json:"stage"`
	Elapsed time.Duration `json:"elapsed"`
	Outcome Outcome       `json:"outcome"`
}

// Metrics are the per-job timings.
type Metrics struct {
	Stages []StageMetric `json:"stages,omitempty"`
	Total  time.Duration `json:"total"`
}

// Job is one render request tracked from submission to a terminal state.
type Job struct {
	ID                  string        `json:"id"`
	Status              Status        `json:"status"`
	Progress            int           `json:"progress"`
	CreatedAt           time.Time     `json:"createdAt"`
	StartedAt           *time.Time    `json:"startedAt,omitempty"`
	EndedAt             *time.Time    `json:"endedAt,omitempty"`
	EstimatedCompletion *time.Time    `json:"estimatedCompletion,omitempty"`
	Input               Input         `json:"input"`
	Intermediate        Intermediate  `json:"intermediate"`
	Output              *stage.Output `json:"output,omitempty"`
	Error               *JobError     `json:"error,omitempty"`
	Warnings            []Warning     `json:"warnings,omitempty"`
	Metrics             Metrics       `json:"metrics"`
}

// NewJob builds a queued job for the resolved input.
func NewJob(input Input, now time.Time) *Job {
	return &Job{
		ID:        NewJobID(),
		Status:    StatusQueued,
		CreatedAt: now.UTC(),
		Input:     input,
	}
}

// IsTerminal reports whether the job reached completed or failed.
func (j *Job) IsTerminal() bool {
	return j != nil && j.Status.IsTerminal()
}

// SetProgress raises progress to percent. Progress never decreases and stays
// within 0..100.
func (j *Job) SetProgress(percent int) {
	if percent > 100 {
		percent = 100
	}
	if percent > j.Progress {
		j.Progress = percent
	}
}

// SetFailed moves the job to failed with the given error.
func (j *Job) SetFailed(now time.Time, jobErr JobError) {
	j.Status = StatusFailed
	j.Error = &jobErr
	j.Output = nil
	ended := now.UTC()
	j.EndedAt = &ended
	j.EstimatedCompletion = nil
	if j.StartedAt != nil {
		j.Metrics.Total = ended.Sub(*j.StartedAt)
	}
}

// SetCompleted moves the job to completed with the given output.
func (j *Job) SetCompleted(now time.Time, output stage.Output) {
	j.Status = StatusCompleted
	j.Output = &output
	j.Error = nil
	j.Progress = 100
	ended := now.UTC()
	j.EndedAt = &ended
	j.EstimatedCompletion = nil
	if j.StartedAt != nil {
		j.Metrics.Total = ended.Sub(*j.StartedAt)
	}
}

// RecordStage appends a settled stage timing.
func (j *Job) RecordStage(status Status, elapsed time.Duration, outcome Outcome) {
	j.Metrics.Stages = append(j.Metrics.Stages, StageMetric{Stage: status, Elapsed: elapsed, Outcome: outcome})
}

// Clone returns a deep copy of the job. Metadata and error detail maps are
// copied one level deep.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	out.StartedAt = cloneTime(j.StartedAt)
	out.EndedAt = cloneTime(j.EndedAt)
	out.EstimatedCompletion = cloneTime(j.EstimatedCompletion)
	out.Input.Metadata = maps.Clone(j.Input.Metadata)
	if j.Intermediate.Script != nil {
		script := *j.Intermediate.Script
		out.Intermediate.Script = &script
	}
	if j.Intermediate.Speech != nil {
		speech := *j.Intermediate.Speech
		speech.Phonemes = slices.Clone(speech.Phonemes)
		out.Intermediate.Speech = &speech
	}
	if j.Intermediate.LipSync != nil {
		lip := *j.Intermediate.LipSync
		lip.Keyframes = slices.Clone(lip.Keyframes)
		out.Intermediate.LipSync = &lip
	}
	if j.Intermediate.Render != nil {
		render := *j.Intermediate.Render
		out.Intermediate.Render = &render
	}
	if j.Output != nil {
		output := *j.Output
		out.Output = &output
	}
	if j.Error != nil {
		jobErr := *j.Error
		jobErr.Details = maps.Clone(j.Error.Details)
		out.Error = &jobErr
	}
	out.Warnings = slices.Clone(j.Warnings)
	out.Metrics.Stages = slices.Clone(j.Metrics.Stages)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Filter narrows List results.
type Filter struct {
	Statuses []Status
	Limit    int
}

func (f Filter) matches(job *Job) bool {
	return len(f.Statuses) == 0 || slices.Contains(f.Statuses, job.Status)
}

// HealthSummary describes aggregated job counts per lifecycle group.
type HealthSummary struct {
	Total      int `json:"total"`
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Failed     int `json:"failed"`
	Completed  int `json:"completed"`
}

// Summarize groups status counts.
func Summarize(stats map[Status]int) HealthSummary {
	var h HealthSummary
	for status, count := range stats {
		h.Total += count
		switch {
		case status == StatusQueued:
			h.Queued += count
		case status == StatusFailed:
			h.Failed += count
		case status == StatusCompleted:
			h.Completed += count
		case status.IsProcessing():
			h.Processing += count
		}
	}
	return h
}
