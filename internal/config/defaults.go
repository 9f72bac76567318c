package config

const (
	defaultConfigPath             = "~/.config/avatarstudio/config.toml"
	defaultDataDir                = "~/.local/share/avatarstudio"
	defaultLogDir                 = "~/.local/share/avatarstudio/logs"
	defaultArtifactDir            = "~/.local/share/avatarstudio/artifacts"
	defaultAPIBind                = "127.0.0.1:7590"
	defaultStore                  = StoreSQLite
	defaultMaxConcurrentJobs      = 3
	defaultRetentionHours         = 24
	defaultRetentionSweepInterval = 600
	defaultMaxTextLength          = 10000
	defaultMetricsInterval        = 60
	defaultHistoryWindowHours     = 24
	defaultMaxAlerts              = 1000
	defaultErrorRateThreshold     = 5
	defaultLatencyThresholdMs     = 10000
	defaultMemoryThreshold        = 80
	defaultQueueDepthThreshold    = 50
	defaultNotifyRequestTimeout   = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultEngineTimeScale        = 0.05
)

// Job store backends.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			LogDir:      defaultLogDir,
			ArtifactDir: defaultArtifactDir,
			APIBind:     defaultAPIBind,
		},
		Workflow: Workflow{
			MaxConcurrentJobs:      defaultMaxConcurrentJobs,
			Store:                  defaultStore,
			RetentionHours:         defaultRetentionHours,
			RetentionSweepInterval: defaultRetentionSweepInterval,
			MaxTextLength:          defaultMaxTextLength,
		},
		Monitoring: Monitoring{
			Enabled:            true,
			MetricsInterval:    defaultMetricsInterval,
			HistoryWindowHours: defaultHistoryWindowHours,
			AlertsEnabled:      true,
			MaxAlerts:          defaultMaxAlerts,
			Thresholds: Thresholds{
				ErrorRate:     defaultErrorRateThreshold,
				LatencyMs:     defaultLatencyThresholdMs,
				MemoryPercent: defaultMemoryThreshold,
				QueueDepth:    defaultQueueDepthThreshold,
			},
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Alerts:         true,
			Failures:       true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Engines: Engines{
			TimeScale: defaultEngineTimeScale,
		},
	}
}
