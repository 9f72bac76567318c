package monitoring

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"avatarstudio/internal/config"
	"avatarstudio/internal/logging"
	"avatarstudio/internal/notifications"
)

// Gauges reports point-in-time workload figures for snapshots.
type Gauges interface {
	QueueDepth() int
	ActiveJobs() int
}

// Options configure a Monitor.
type Options struct {
	Interval      time.Duration
	History       int
	MaxAlerts     int
	AlertsEnabled bool
	Thresholds    Thresholds
	// Memory reports memory use as a percentage. Defaults to SystemMemoryPercent.
	Memory   func() float64
	Notifier notifications.Service
	Logger   *slog.Logger
	Now      func() time.Time
}

// OptionsFromConfig derives monitor options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	interval := cfg.MetricsInterval()
	history := 0
	if interval > 0 {
		history = int(cfg.HistoryWindow() / interval)
	}
	return Options{
		Interval:      interval,
		History:       history,
		MaxAlerts:     cfg.Monitoring.MaxAlerts,
		AlertsEnabled: cfg.Monitoring.AlertsEnabled,
		Thresholds: Thresholds{
			ErrorRate:     cfg.Monitoring.Thresholds.ErrorRate,
			Latency:       time.Duration(cfg.Monitoring.Thresholds.LatencyMs) * time.Millisecond,
			MemoryPercent: cfg.Monitoring.Thresholds.MemoryPercent,
			QueueDepth:    cfg.Monitoring.Thresholds.QueueDepth,
		},
	}
}

// Monitor aggregates stage outcomes into rolling metrics, keeps a bounded
// snapshot history and raises threshold alerts.
type Monitor struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	gauges  Gauges
	stages  map[string]*StageStats
	jobs    JobStats
	history []Snapshot
	alerts  []*Alert
	memory  float64
}

// New constructs a Monitor with defaults applied to unset options.
func New(opts Options) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.History <= 0 {
		opts.History = int(24 * time.Hour / opts.Interval)
	}
	if opts.MaxAlerts <= 0 {
		opts.MaxAlerts = 1000
	}
	if opts.Memory == nil {
		opts.Memory = SystemMemoryPercent
	}
	if opts.Notifier == nil {
		opts.Notifier = notifications.NewService(&config.Config{})
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Monitor{
		opts:   opts,
		logger: logger.With(logging.String(logging.FieldComponent, "monitor")),
		stages: make(map[string]*StageStats),
	}
}

// SetGauges attaches the workload source sampled by Tick.
func (m *Monitor) SetGauges(g Gauges) {
	m.mu.Lock()
	m.gauges = g
	m.mu.Unlock()
}

// ObserveStage records one settled stage invocation. Latency averages cover
// successful invocations only.
func (m *Monitor) ObserveStage(stage string, elapsed time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats, ok := m.stages[stage]
	if !ok {
		stats = &StageStats{}
		m.stages[stage] = stats
	}
	stats.Invocations++
	if err != nil {
		stats.Failures++
		return
	}
	stats.Successes++
	stats.AvgLatency += (elapsed - stats.AvgLatency) / time.Duration(stats.Successes)
}

// ObserveJobStarted counts a job picked up by the dispatcher.
func (m *Monitor) ObserveJobStarted() {
	m.mu.Lock()
	m.jobs.Started++
	m.mu.Unlock()
}

// ObserveJobFinished records a terminal job and its total processing time.
func (m *Monitor) ObserveJobFinished(succeeded bool, total time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if succeeded {
		m.jobs.Completed++
	} else {
		m.jobs.Failed++
	}
	m.jobs.totalProcessing += total
	finished := m.jobs.Completed + m.jobs.Failed
	m.jobs.AvgProcessing = m.jobs.totalProcessing / time.Duration(finished)
	m.jobs.SuccessRate = float64(m.jobs.Completed) / float64(finished) * 100
}

// StageStats returns a copy of the current per-stage aggregates.
func (m *Monitor) StageStats() map[string]StageStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stageCopy()
}

// JobStats returns the current job aggregates.
func (m *Monitor) JobStats() JobStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs
}

func (m *Monitor) stageCopy() map[string]StageStats {
	out := make(map[string]StageStats, len(m.stages))
	for name, stats := range m.stages {
		out[name] = *stats
	}
	return out
}

// Run snapshots on every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick captures one snapshot, appends it to history and runs threshold checks.
func (m *Monitor) Tick(ctx context.Context) Snapshot {
	memory := m.opts.Memory()

	m.mu.Lock()
	snap := Snapshot{
		Timestamp:     m.opts.Now().UTC(),
		Stages:        m.stageCopy(),
		Jobs:          m.jobs,
		MemoryPercent: memory,
	}
	if m.gauges != nil {
		snap.QueueDepth = m.gauges.QueueDepth()
		snap.ActiveJobs = m.gauges.ActiveJobs()
	}
	var invocations, failures int
	for _, stats := range snap.Stages {
		invocations += stats.Invocations
		failures += stats.Failures
	}
	if invocations > 0 {
		snap.ErrorRate = float64(failures) / float64(invocations) * 100
	}
	m.memory = memory
	m.history = append(m.history, snap)
	if overflow := len(m.history) - m.opts.History; overflow > 0 {
		m.history = slices.Delete(m.history, 0, overflow)
	}
	var raised []Alert
	if m.opts.AlertsEnabled {
		raised = m.checkThresholds(snap)
	}
	m.mu.Unlock()

	for _, alert := range raised {
		m.publish(ctx, alert)
	}
	return snap
}

func (m *Monitor) checkThresholds(snap Snapshot) []Alert {
	t := m.opts.Thresholds
	var raised []Alert
	if t.ErrorRate > 0 && snap.ErrorRate > t.ErrorRate {
		raised = append(raised, m.raise(SeverityWarning, CategoryError, "High error rate",
			fmt.Sprintf("Stage error rate is %.1f%% (threshold %.1f%%)", snap.ErrorRate, t.ErrorRate),
			map[string]any{"errorRate": snap.ErrorRate, "threshold": t.ErrorRate}))
	}
	if t.Latency > 0 {
		for _, name := range slices.Sorted(maps.Keys(snap.Stages)) {
			stats := snap.Stages[name]
			if stats.Successes == 0 || stats.AvgLatency <= t.Latency {
				continue
			}
			raised = append(raised, m.raise(SeverityWarning, CategoryPerformance, "High stage latency",
				fmt.Sprintf("Average %s latency is %s (threshold %s)", name, stats.AvgLatency.Round(time.Millisecond), t.Latency),
				map[string]any{"stage": name, "avgLatencyMs": stats.AvgLatency.Milliseconds(), "thresholdMs": t.Latency.Milliseconds()}))
		}
	}
	if t.QueueDepth > 0 && snap.QueueDepth > t.QueueDepth {
		raised = append(raised, m.raise(SeverityWarning, CategoryPerformance, "Queue backlog",
			fmt.Sprintf("%d jobs waiting (threshold %d)", snap.QueueDepth, t.QueueDepth),
			map[string]any{"queueDepth": snap.QueueDepth, "threshold": t.QueueDepth}))
	}
	if t.MemoryPercent > 0 && snap.MemoryPercent > t.MemoryPercent {
		raised = append(raised, m.raise(SeverityCritical, CategorySystem, "High memory usage",
			fmt.Sprintf("Memory usage is %.1f%% (threshold %.1f%%)", snap.MemoryPercent, t.MemoryPercent),
			map[string]any{"memoryPercent": snap.MemoryPercent, "threshold": t.MemoryPercent}))
	}
	return raised
}

// raise appends an alert, dropping the oldest once MaxAlerts is reached.
// Callers hold m.mu.
func (m *Monitor) raise(severity Severity, category Category, title, message string, data map[string]any) Alert {
	alert := &Alert{
		ID:        "alert_" + uuid.NewString(),
		Timestamp: m.opts.Now().UTC(),
		Severity:  severity,
		Category:  category,
		Title:     title,
		Message:   message,
		Data:      data,
	}
	m.alerts = append(m.alerts, alert)
	if overflow := len(m.alerts) - m.opts.MaxAlerts; overflow > 0 {
		m.alerts = slices.Delete(m.alerts, 0, overflow)
	}
	return *alert
}

func (m *Monitor) publish(ctx context.Context, alert Alert) {
	attrs := []logging.Attr{
		logging.String("alert_id", alert.ID),
		logging.String("severity", string(alert.Severity)),
		logging.String("category", string(alert.Category)),
		logging.String("message", alert.Message),
	}
	if alert.Severity == SeverityCritical {
		logging.ErrorWithContext(m.logger, alert.Title, "alert_raised", append(attrs,
			logging.String(logging.FieldErrorHint, "check host resources"),
		)...)
	} else {
		logging.WarnWithContext(m.logger, alert.Title, "alert_raised", append(attrs,
			logging.String(logging.FieldErrorHint, "inspect avatarstudio metrics"),
			logging.String(logging.FieldImpact, "pipeline throughput may degrade"),
		)...)
	}
	if err := m.opts.Notifier.Publish(ctx, notifications.EventAlertRaised, notifications.Payload{
		"severity": string(alert.Severity),
		"category": string(alert.Category),
		"title":    alert.Title,
		"message":  alert.Message,
	}); err != nil {
		m.logger.Debug("alert notification failed", logging.Error(err))
	}
}
