package api

import (
	"avatarstudio/internal/monitoring"
	"avatarstudio/internal/pipelineconfig"
	"avatarstudio/internal/stage"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// SubmitRequest enqueues a render. Config fields left unset take the
// pipeline defaults.
type SubmitRequest struct {
	Text     string                 `json:"text"`
	Config   pipelineconfig.Partial `json:"config"`
	Metadata map[string]any         `json:"metadata,omitempty"`
}

// SubmitResponse carries the id of the created job.
type SubmitResponse struct {
	JobID string `json:"jobId"`
}

// CancelResponse reports whether the cancel request moved the job to failed.
type CancelResponse struct {
	JobID     string `json:"jobId"`
	Cancelled bool   `json:"cancelled"`
}

// Job describes a render job in a transport-friendly format.
type Job struct {
	ID                  string         `json:"id"`
	Status              string         `json:"status"`
	Progress            int            `json:"progress"`
	CreatedAt           string         `json:"createdAt,omitempty"`
	StartedAt           string         `json:"startedAt,omitempty"`
	EndedAt             string         `json:"endedAt,omitempty"`
	EstimatedCompletion string         `json:"estimatedCompletion,omitempty"`
	Output              *JobOutput     `json:"output,omitempty"`
	Error               *JobError      `json:"error,omitempty"`
	Warnings            []JobWarning   `json:"warnings,omitempty"`
	Metrics             JobMetrics     `json:"metrics"`
	Metadata            map[string]any `json:"metadata,omitempty"`
}

// JobOutput is the delivered video of a completed job.
type JobOutput struct {
	VideoURL     string               `json:"videoUrl"`
	AudioURL     string               `json:"audioUrl"`
	ThumbnailURL string               `json:"thumbnailUrl"`
	DurationMs   int64                `json:"durationMs"`
	FileSize     int64                `json:"fileSize"`
	Metadata     stage.OutputMetadata `json:"metadata"`
}

// JobError describes why a job failed.
type JobError struct {
	Message string         `json:"message"`
	Code    string         `json:"code"`
	Stage   string         `json:"stage"`
	Details map[string]any `json:"details,omitempty"`
}

// JobWarning is a non-fatal stage problem.
type JobWarning struct {
	Stage   string `json:"stage"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	At      string `json:"at,omitempty"`
}

// JobMetrics captures per-stage timings.
type JobMetrics struct {
	Stages  []StageTiming `json:"stages,omitempty"`
	TotalMs int64         `json:"totalMs"`
}

// StageTiming is the elapsed time and outcome of one settled stage.
type StageTiming struct {
	Stage     string `json:"stage"`
	ElapsedMs int64  `json:"elapsedMs"`
	Outcome   string `json:"outcome"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobCounts groups jobs by lifecycle state.
type JobCounts struct {
	Total      int `json:"total"`
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Failed     int `json:"failed"`
	Completed  int `json:"completed"`
}

// StageHealth mirrors readiness reporting for stage executors.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// WorkflowStatus summarizes orchestrator state.
type WorkflowStatus struct {
	Running     bool          `json:"running"`
	LastError   string        `json:"lastError,omitempty"`
	QueueDepth  int           `json:"queueDepth"`
	ActiveJobs  int           `json:"activeJobs"`
	Slots       int           `json:"slots"`
	Jobs        JobCounts     `json:"jobs"`
	StageHealth []StageHealth `json:"stageHealth"`
}

// HealthResponse aggregates system health for API consumers.
type HealthResponse struct {
	Health      monitoring.Health  `json:"health"`
	Workflow    WorkflowStatus     `json:"workflow"`
	Performance PerformanceSummary `json:"performance"`
	PID         int                `json:"pid"`
	DatabaseDSN string             `json:"database,omitempty"`
	LockPath    string             `json:"lockPath,omitempty"`
}

// PerformanceSummary is the headline job throughput view.
type PerformanceSummary struct {
	TotalJobs       int     `json:"totalJobs"`
	Completed       int     `json:"completed"`
	Failed          int     `json:"failed"`
	SuccessRate     float64 `json:"successRate"`
	AvgProcessingMs int64   `json:"avgProcessingMs"`
	QueueLength     int     `json:"queueLength"`
	ActiveJobs      int     `json:"activeJobs"`
}

// StageStats is the rolling aggregate for one stage.
type StageStats struct {
	Invocations  int     `json:"invocations"`
	Successes    int     `json:"successes"`
	Failures     int     `json:"failures"`
	ErrorRate    float64 `json:"errorRate"`
	AvgLatencyMs int64   `json:"avgLatencyMs"`
}

// Snapshot is one periodic metrics capture.
type Snapshot struct {
	Timestamp     string                `json:"timestamp"`
	Stages        map[string]StageStats `json:"stages"`
	QueueDepth    int                   `json:"queueDepth"`
	ActiveJobs    int                   `json:"activeJobs"`
	MemoryPercent float64               `json:"memoryPercent"`
	ErrorRate     float64               `json:"errorRate"`
	JobsCompleted int                   `json:"jobsCompleted"`
	JobsFailed    int                   `json:"jobsFailed"`
}

// MetricsResponse wraps the snapshot history.
type MetricsResponse struct {
	Snapshots []Snapshot `json:"snapshots"`
}

// Alert is a raised threshold alert.
type Alert struct {
	ID         string         `json:"id"`
	Timestamp  string         `json:"timestamp"`
	Severity   string         `json:"severity"`
	Category   string         `json:"category"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	Data       map[string]any `json:"data,omitempty"`
	Resolved   bool           `json:"resolved"`
	ResolvedAt string         `json:"resolvedAt,omitempty"`
}

// AlertListResponse wraps a collection of alerts.
type AlertListResponse struct {
	Alerts []Alert `json:"alerts"`
}

// ResolveAlertResponse reports whether an alert changed to resolved.
type ResolveAlertResponse struct {
	AlertID  string `json:"alertId"`
	Resolved bool   `json:"resolved"`
}

// StageListResponse wraps executor readiness.
type StageListResponse struct {
	Stages []StageHealth `json:"stages"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}
