package monitoring

import "time"

// Severity grades an alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Category groups alerts by the subsystem that raised them.
type Category string

const (
	CategoryPerformance Category = "performance"
	CategoryError       Category = "error"
	CategorySystem      Category = "system"
	CategorySecurity    Category = "security"
)

// Alert is raised when a snapshot crosses a configured threshold. Only
// Resolved and ResolvedAt change after creation.
type Alert struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	Severity   Severity       `json:"severity"`
	Category   Category       `json:"category"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	Data       map[string]any `json:"data,omitempty"`
	Resolved   bool           `json:"resolved"`
	ResolvedAt *time.Time     `json:"resolvedAt,omitempty"`
}

// StageStats is the rolling aggregate for one stage.
type StageStats struct {
	Invocations int           `json:"invocations"`
	Successes   int           `json:"successes"`
	Failures    int           `json:"failures"`
	AvgLatency  time.Duration `json:"avgLatency"`
}

// ErrorRate returns the failure percentage over all invocations.
func (s StageStats) ErrorRate() float64 {
	if s.Invocations == 0 {
		return 0
	}
	return float64(s.Failures) / float64(s.Invocations) * 100
}

// JobStats aggregates job level outcomes.
type JobStats struct {
	Started         int           `json:"started"`
	Completed       int           `json:"completed"`
	Failed          int           `json:"failed"`
	AvgProcessing   time.Duration `json:"avgProcessing"`
	SuccessRate     float64       `json:"successRate"`
	totalProcessing time.Duration
}

// Snapshot is one periodic capture of aggregates plus system gauges.
type Snapshot struct {
	Timestamp     time.Time             `json:"timestamp"`
	Stages        map[string]StageStats `json:"stages"`
	Jobs          JobStats              `json:"jobs"`
	QueueDepth    int                   `json:"queueDepth"`
	ActiveJobs    int                   `json:"activeJobs"`
	MemoryPercent float64               `json:"memoryPercent"`
	ErrorRate     float64               `json:"errorRate"`
}

// HealthStatus is the coarse system state.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
)

// Health summarizes active alerts and system gauges.
type Health struct {
	Status HealthStatus `json:"status"`
	Score  int          `json:"score"`
	Issues []string     `json:"issues"`
}

// MetricsFilter narrows ListMetrics. Zero values disable a bound.
type MetricsFilter struct {
	Limit int
	From  time.Time
	To    time.Time
}

// AlertFilter narrows ListAlerts. Nil or empty fields match everything.
type AlertFilter struct {
	Resolved *bool
	Severity Severity
	Category Category
}

// Thresholds are the per-snapshot alert limits.
type Thresholds struct {
	ErrorRate     float64
	Latency       time.Duration
	MemoryPercent float64
	QueueDepth    int
}
