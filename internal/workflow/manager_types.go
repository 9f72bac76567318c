package workflow

import (
	"context"
	"time"

	"avatarstudio/internal/queue"
	"avatarstudio/internal/services"
	"avatarstudio/internal/stage"
)

// applyFunc stores a settled stage result on the job inside a registry update.
type applyFunc func(*queue.Job)

type stageRunner func(m *Manager, ctx context.Context, job *queue.Job, progress stage.ProgressFunc) (applyFunc, error)

// pipelineStage is one step of the render pipeline. Progress moves from entry
// to exit while the stage runs.
type pipelineStage struct {
	name    string
	status  queue.Status
	entry   int
	exit    int
	run     stageRunner
	lenient bool
}

func pipeline() []pipelineStage {
	return []pipelineStage{
		{name: "preprocessing", status: queue.StatusPreprocessing, entry: 5, exit: 10, run: (*Manager).preprocess},
		{name: "tts", status: queue.StatusTTSGeneration, entry: 15, exit: 35, run: (*Manager).synthesize},
		{name: "lipsync", status: queue.StatusLipSync, entry: 40, exit: 60, run: (*Manager).align},
		{name: "renderer", status: queue.StatusRendering, entry: 65, exit: 90, run: (*Manager).render},
		{name: "postprocess", status: queue.StatusPostProcessing, entry: 95, exit: 100, run: (*Manager).postProcess, lenient: true},
	}
}

var (
	errCancelledByUser = services.Cancelled("Job cancelled by user")
	errDaemonStopped   = &services.Error{Kind: services.KindCancelled, Code: queue.CodeInterrupted, Message: queue.DaemonStopReason}
)

// StatusView is the read-only projection of a job returned to callers.
type StatusView struct {
	ID                  string          `json:"id"`
	Status              queue.Status    `json:"status"`
	Progress            int             `json:"progress"`
	CreatedAt           time.Time       `json:"createdAt"`
	StartedAt           *time.Time      `json:"startedAt,omitempty"`
	EndedAt             *time.Time      `json:"endedAt,omitempty"`
	EstimatedCompletion *time.Time      `json:"estimatedCompletion,omitempty"`
	Output              *stage.Output   `json:"output,omitempty"`
	Error               *queue.JobError `json:"error,omitempty"`
	Warnings            []queue.Warning `json:"warnings,omitempty"`
	Metrics             queue.Metrics   `json:"metrics"`
	Metadata            map[string]any  `json:"metadata,omitempty"`
}

func viewOf(job *queue.Job) StatusView {
	return StatusView{
		ID:                  job.ID,
		Status:              job.Status,
		Progress:            job.Progress,
		CreatedAt:           job.CreatedAt,
		StartedAt:           job.StartedAt,
		EndedAt:             job.EndedAt,
		EstimatedCompletion: job.EstimatedCompletion,
		Output:              job.Output,
		Error:               job.Error,
		Warnings:            job.Warnings,
		Metrics:             job.Metrics,
		Metadata:            job.Input.Metadata,
	}
}

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running    bool                `json:"running"`
	LastError  string              `json:"lastError,omitempty"`
	QueueDepth int                 `json:"queueDepth"`
	ActiveJobs int                 `json:"activeJobs"`
	Slots      int                 `json:"slots"`
	Jobs       queue.HealthSummary `json:"jobs"`
	Stages     []stage.Health      `json:"stages"`
}
