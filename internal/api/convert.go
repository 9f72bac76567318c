package api

import (
	"time"

	"avatarstudio/internal/monitoring"
	"avatarstudio/internal/stage"
	"avatarstudio/internal/workflow"
)

// FromStatusView converts a job projection to its API representation.
func FromStatusView(view workflow.StatusView) Job {
	dto := Job{
		ID:                  view.ID,
		Status:              string(view.Status),
		Progress:            view.Progress,
		CreatedAt:           formatTime(view.CreatedAt),
		StartedAt:           formatTimePtr(view.StartedAt),
		EndedAt:             formatTimePtr(view.EndedAt),
		EstimatedCompletion: formatTimePtr(view.EstimatedCompletion),
		Metadata:            view.Metadata,
		Metrics:             JobMetrics{TotalMs: view.Metrics.Total.Milliseconds()},
	}
	if out := view.Output; out != nil {
		dto.Output = &JobOutput{
			VideoURL:     out.VideoURL,
			AudioURL:     out.AudioURL,
			ThumbnailURL: out.ThumbnailURL,
			DurationMs:   out.Duration.Milliseconds(),
			FileSize:     out.FileSize,
			Metadata:     out.Metadata,
		}
	}
	if jobErr := view.Error; jobErr != nil {
		dto.Error = &JobError{
			Message: jobErr.Message,
			Code:    jobErr.Code,
			Stage:   string(jobErr.Stage),
			Details: jobErr.Details,
		}
	}
	for _, w := range view.Warnings {
		dto.Warnings = append(dto.Warnings, JobWarning{
			Stage:   string(w.Stage),
			Code:    w.Code,
			Message: w.Message,
			At:      formatTime(w.At),
		})
	}
	for _, m := range view.Metrics.Stages {
		dto.Metrics.Stages = append(dto.Metrics.Stages, StageTiming{
			Stage:     string(m.Stage),
			ElapsedMs: m.Elapsed.Milliseconds(),
			Outcome:   string(m.Outcome),
		})
	}
	return dto
}

// FromStatusViews converts job projections into API DTOs.
func FromStatusViews(views []workflow.StatusView) []Job {
	out := make([]Job, 0, len(views))
	for _, view := range views {
		out = append(out, FromStatusView(view))
	}
	return out
}

// FromStatusSummary converts the workflow summary to its API representation.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	return WorkflowStatus{
		Running:    summary.Running,
		LastError:  summary.LastError,
		QueueDepth: summary.QueueDepth,
		ActiveJobs: summary.ActiveJobs,
		Slots:      summary.Slots,
		Jobs: JobCounts{
			Total:      summary.Jobs.Total,
			Queued:     summary.Jobs.Queued,
			Processing: summary.Jobs.Processing,
			Failed:     summary.Jobs.Failed,
			Completed:  summary.Jobs.Completed,
		},
		StageHealth: StageHealthSlice(summary.Stages),
	}
}

// StageHealthSlice converts executor readiness, keeping order.
func StageHealthSlice(health []stage.Health) []StageHealth {
	out := make([]StageHealth, 0, len(health))
	for _, h := range health {
		out = append(out, StageHealth{Name: h.Name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FromSummary converts the monitor's performance summary.
func FromSummary(s monitoring.Summary) PerformanceSummary {
	return PerformanceSummary{
		TotalJobs:       s.TotalJobs,
		Completed:       s.Completed,
		Failed:          s.Failed,
		SuccessRate:     s.SuccessRate,
		AvgProcessingMs: s.AvgProcessing.Milliseconds(),
		QueueLength:     s.QueueLength,
		ActiveJobs:      s.ActiveJobs,
	}
}

// FromSnapshots converts metric snapshots, oldest first.
func FromSnapshots(snaps []monitoring.Snapshot) []Snapshot {
	out := make([]Snapshot, 0, len(snaps))
	for _, snap := range snaps {
		stages := make(map[string]StageStats, len(snap.Stages))
		for name, st := range snap.Stages {
			stages[name] = StageStats{
				Invocations:  st.Invocations,
				Successes:    st.Successes,
				Failures:     st.Failures,
				ErrorRate:    st.ErrorRate(),
				AvgLatencyMs: st.AvgLatency.Milliseconds(),
			}
		}
		out = append(out, Snapshot{
			Timestamp:     formatTime(snap.Timestamp),
			Stages:        stages,
			QueueDepth:    snap.QueueDepth,
			ActiveJobs:    snap.ActiveJobs,
			MemoryPercent: snap.MemoryPercent,
			ErrorRate:     snap.ErrorRate,
			JobsCompleted: snap.Jobs.Completed,
			JobsFailed:    snap.Jobs.Failed,
		})
	}
	return out
}

// FromAlert converts a monitor alert.
func FromAlert(a monitoring.Alert) Alert {
	return Alert{
		ID:         a.ID,
		Timestamp:  formatTime(a.Timestamp),
		Severity:   string(a.Severity),
		Category:   string(a.Category),
		Title:      a.Title,
		Message:    a.Message,
		Data:       a.Data,
		Resolved:   a.Resolved,
		ResolvedAt: formatTimePtr(a.ResolvedAt),
	}
}

// FromAlerts converts monitor alerts, keeping order.
func FromAlerts(alerts []monitoring.Alert) []Alert {
	out := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, FromAlert(a))
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

// ParseTime reads an RFC3339 timestamp such as those produced by the API.
// Empty input yields the zero time.
func ParseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, value)
}
