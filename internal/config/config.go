package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"avatarstudio/internal/pipelineconfig"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir     string `toml:"data_dir"`
	LogDir      string `toml:"log_dir"`
	ArtifactDir string `toml:"artifact_dir"`
	APIBind     string `toml:"api_bind"`
	APIToken    string `toml:"api_token"`
}

// Workflow contains orchestrator limits and retention.
type Workflow struct {
	MaxConcurrentJobs      int    `toml:"max_concurrent_jobs"`
	Store                  string `toml:"store"`
	RetentionHours         int    `toml:"retention_hours"`
	RetentionSweepInterval int    `toml:"retention_sweep_interval"`
	MaxTextLength          int    `toml:"max_text_length"`
}

// Thresholds are the alerting limits checked on every metrics snapshot.
type Thresholds struct {
	ErrorRate     float64 `toml:"error_rate"`
	LatencyMs     int     `toml:"latency_ms"`
	MemoryPercent float64 `toml:"memory_percent"`
	QueueDepth    int     `toml:"queue_depth"`
}

// Monitoring configures the metrics and alert sink.
type Monitoring struct {
	Enabled            bool       `toml:"enabled"`
	MetricsInterval    int        `toml:"metrics_interval"`
	HistoryWindowHours int        `toml:"history_window_hours"`
	AlertsEnabled      bool       `toml:"alerts_enabled"`
	MaxAlerts          int        `toml:"max_alerts"`
	Thresholds         Thresholds `toml:"thresholds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Alerts         bool   `toml:"alerts"`
	Failures       bool   `toml:"failures"`
	Completions    bool   `toml:"completions"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Engines configures the bundled simulated stage executors.
type Engines struct {
	// TimeScale multiplies modelled stage durations; 0 completes stages instantly.
	TimeScale float64 `toml:"time_scale"`
}

// Config encapsulates all configuration values for AvatarStudio.
//
// Configuration sections by subsystem:
//   - Paths: data, log and artifact directories plus API bind address
//   - Workflow: concurrency, job store backend, retention, input limits
//   - Monitoring: metrics interval, history window, alert thresholds
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
//   - Engines: simulated executor pacing
//   - Pipeline: overrides for the built-in render pipeline defaults
type Config struct {
	Paths         Paths                  `toml:"paths"`
	Workflow      Workflow               `toml:"workflow"`
	Monitoring    Monitoring             `toml:"monitoring"`
	Notifications Notifications          `toml:"notifications"`
	Logging       Logging                `toml:"logging"`
	Engines       Engines                `toml:"engines"`
	Pipeline      pipelineconfig.Partial `toml:"pipeline"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("avatarstudio.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.ArtifactDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath is the SQLite job store location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "jobs.db")
}

// LockPath is the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "avatarstudio.lock")
}

// Resolver builds the pipeline config resolver with [pipeline] overrides applied.
func (c *Config) Resolver() *pipelineconfig.Resolver {
	return pipelineconfig.NewResolver(c.Pipeline)
}

// MetricsInterval returns the monitoring snapshot interval.
func (c *Config) MetricsInterval() time.Duration {
	return time.Duration(c.Monitoring.MetricsInterval) * time.Second
}

// HistoryWindow returns how much snapshot history the monitor retains.
func (c *Config) HistoryWindow() time.Duration {
	return time.Duration(c.Monitoring.HistoryWindowHours) * time.Hour
}

// Retention returns the age after which terminal jobs are removed. Zero
// disables the sweep.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Workflow.RetentionHours) * time.Hour
}

// RetentionSweepInterval returns how often the retention sweep runs.
func (c *Config) RetentionSweepInterval() time.Duration {
	return time.Duration(c.Workflow.RetentionSweepInterval) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() (string, error) {
	var b strings.Builder
	enc := toml.NewEncoder(&b)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return b.String(), nil
}
