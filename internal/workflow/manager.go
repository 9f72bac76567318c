package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"avatarstudio/internal/artifacts"
	"avatarstudio/internal/config"
	"avatarstudio/internal/logging"
	"avatarstudio/internal/monitoring"
	"avatarstudio/internal/notifications"
	"avatarstudio/internal/pipelineconfig"
	"avatarstudio/internal/queue"
	"avatarstudio/internal/stage"
)

// Manager coordinates job submission, dispatch and stage execution.
type Manager struct {
	cfg       *config.Config
	registry  queue.Registry
	pending   *queue.Pending
	resolver  *pipelineconfig.Resolver
	executors stage.Executors
	monitor   *monitoring.Monitor
	notifier  notifications.Service
	logger    *slog.Logger
	layout    artifacts.Layout
	now       func() time.Time
	stages    []pipelineStage
	slots     chan struct{}

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	active  map[string]context.CancelCauseFunc
	lastErr error
}

// Options carries the collaborators a Manager drives. Registry and Executors
// are required; the rest fall back to defaults derived from the config.
type Options struct {
	Registry  queue.Registry
	Pending   *queue.Pending
	Executors stage.Executors
	Monitor   *monitoring.Monitor
	Notifier  notifications.Service
	Logger    *slog.Logger
	Now       func() time.Time
}

// NewManager constructs a workflow manager and registers it as the monitor's
// workload gauge.
func NewManager(cfg *config.Config, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	pending := opts.Pending
	if pending == nil {
		pending = queue.NewPending()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	monitor := opts.Monitor
	if monitor == nil {
		monOpts := monitoring.OptionsFromConfig(cfg)
		monOpts.Notifier = notifier
		monOpts.Logger = logger
		monitor = monitoring.New(monOpts)
	}
	slots := cfg.Workflow.MaxConcurrentJobs
	if slots <= 0 {
		slots = pipelineconfig.Default().Performance.MaxConcurrentJobs
	}

	m := &Manager{
		cfg:       cfg,
		registry:  opts.Registry,
		pending:   pending,
		resolver:  cfg.Resolver(),
		executors: opts.Executors,
		monitor:   monitor,
		notifier:  notifier,
		logger:    logging.NewComponentLogger(logger, "workflow-manager"),
		layout:    artifacts.Layout{Root: cfg.Paths.ArtifactDir},
		now:       now,
		stages:    pipeline(),
		slots:     make(chan struct{}, slots),
		active:    make(map[string]context.CancelCauseFunc),
	}
	monitor.SetGauges(m)
	return m
}

// Monitor exposes the metrics sink the manager reports into.
func (m *Manager) Monitor() *monitoring.Monitor {
	return m.monitor
}
