package monitoring

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// ListMetrics returns snapshots within the filter window, newest last. Limit
// keeps the most recent entries.
func (m *Monitor) ListMetrics(filter MetricsFilter) []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Snapshot, 0, len(m.history))
	for _, snap := range m.history {
		if !filter.From.IsZero() && snap.Timestamp.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && snap.Timestamp.After(filter.To) {
			continue
		}
		snap.Stages = maps.Clone(snap.Stages)
		out = append(out, snap)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[len(out)-filter.Limit:]
	}
	return out
}

// ListAlerts returns matching alerts, newest first.
func (m *Monitor) ListAlerts(filter AlertFilter) []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Alert, 0, len(m.alerts))
	for _, alert := range slices.Backward(m.alerts) {
		if filter.Resolved != nil && alert.Resolved != *filter.Resolved {
			continue
		}
		if filter.Severity != "" && alert.Severity != filter.Severity {
			continue
		}
		if filter.Category != "" && alert.Category != filter.Category {
			continue
		}
		out = append(out, cloneAlert(alert))
	}
	return out
}

// ResolveAlert marks an alert resolved. It returns false when the alert is
// unknown or already resolved.
func (m *Monitor) ResolveAlert(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, alert := range m.alerts {
		if alert.ID != id {
			continue
		}
		if alert.Resolved {
			return false
		}
		now := m.opts.Now().UTC()
		alert.Resolved = true
		alert.ResolvedAt = &now
		return true
	}
	return false
}

// Health derives the system state from active alerts and the last memory
// reading.
func (m *Monitor) Health() Health {
	m.mu.Lock()
	defer m.mu.Unlock()

	var critical, warning int
	for _, alert := range m.alerts {
		if alert.Resolved {
			continue
		}
		switch alert.Severity {
		case SeverityCritical:
			critical++
		case SeverityWarning:
			warning++
		}
	}

	h := Health{Status: HealthHealthy, Score: 100, Issues: []string{}}
	if critical > 0 {
		h.Status = HealthCritical
		h.Score -= 25 * critical
		h.Issues = append(h.Issues, fmt.Sprintf("%d critical alert(s) active", critical))
	}
	if warning > 0 {
		h.Score -= 10 * warning
		if warning > 3 && h.Status == HealthHealthy {
			h.Status = HealthWarning
		}
		h.Issues = append(h.Issues, fmt.Sprintf("%d warning alert(s) active", warning))
	}
	switch {
	case m.memory > 90:
		h.Status = HealthCritical
		h.Score -= 20
		h.Issues = append(h.Issues, fmt.Sprintf("memory usage critical (%.1f%%)", m.memory))
	case m.memory > 70:
		if h.Status == HealthHealthy {
			h.Status = HealthWarning
		}
		h.Score -= 10
		h.Issues = append(h.Issues, fmt.Sprintf("memory usage elevated (%.1f%%)", m.memory))
	}
	h.Score = max(0, min(100, h.Score))
	return h
}

// Summary is the headline performance view.
type Summary struct {
	TotalJobs     int           `json:"totalJobs"`
	Completed     int           `json:"completed"`
	Failed        int           `json:"failed"`
	SuccessRate   float64       `json:"successRate"`
	AvgProcessing time.Duration `json:"avgProcessing"`
	QueueLength   int           `json:"queueLength"`
	ActiveJobs    int           `json:"activeJobs"`
}

// Summary reports job aggregates and live gauges.
func (m *Monitor) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Summary{
		TotalJobs:     m.jobs.Started,
		Completed:     m.jobs.Completed,
		Failed:        m.jobs.Failed,
		SuccessRate:   m.jobs.SuccessRate,
		AvgProcessing: m.jobs.AvgProcessing,
	}
	if m.gauges != nil {
		s.QueueLength = m.gauges.QueueDepth()
		s.ActiveJobs = m.gauges.ActiveJobs()
	}
	return s
}

func cloneAlert(a *Alert) Alert {
	out := *a
	out.Data = maps.Clone(a.Data)
	if a.ResolvedAt != nil {
		at := *a.ResolvedAt
		out.ResolvedAt = &at
	}
	return out
}
