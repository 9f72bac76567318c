package config

import (
	"fmt"
	"strings"

	"avatarstudio/internal/services"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateMonitoring(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Engines.TimeScale < 0 {
		return invalid("engines.time_scale must be zero or positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.MaxConcurrentJobs <= 0 {
		return invalid("workflow.max_concurrent_jobs must be positive")
	}
	switch c.Workflow.Store {
	case StoreSQLite, StoreMemory:
	default:
		return invalid("workflow.store must be %q or %q, got %q", StoreSQLite, StoreMemory, c.Workflow.Store)
	}
	if c.Workflow.RetentionHours < 0 {
		return invalid("workflow.retention_hours must be zero (disabled) or positive")
	}
	if c.Workflow.MaxTextLength <= 0 {
		return invalid("workflow.max_text_length must be positive")
	}
	return nil
}

func (c *Config) validateMonitoring() error {
	m := c.Monitoring
	if !m.Enabled {
		return nil
	}
	if m.MetricsInterval <= 0 {
		return invalid("monitoring.metrics_interval must be positive")
	}
	if m.HistoryWindowHours <= 0 {
		return invalid("monitoring.history_window_hours must be positive")
	}
	if m.MaxAlerts <= 0 {
		return invalid("monitoring.max_alerts must be positive")
	}
	if m.Thresholds.ErrorRate <= 0 || m.Thresholds.ErrorRate > 100 {
		return invalid("monitoring.thresholds.error_rate must be within (0, 100]")
	}
	if m.Thresholds.MemoryPercent <= 0 || m.Thresholds.MemoryPercent > 100 {
		return invalid("monitoring.thresholds.memory_percent must be within (0, 100]")
	}
	if m.Thresholds.LatencyMs <= 0 {
		return invalid("monitoring.thresholds.latency_ms must be positive")
	}
	if m.Thresholds.QueueDepth <= 0 {
		return invalid("monitoring.thresholds.queue_depth must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return invalid("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", services.ErrConfiguration, fmt.Sprintf(format, args...))
}
