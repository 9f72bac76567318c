package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"avatarstudio/internal/config"
	"avatarstudio/internal/logging"
	"avatarstudio/internal/preflight"
	"avatarstudio/internal/queue"
	"avatarstudio/internal/workflow"
)

// Daemon coordinates the background processing services and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry queue.Registry
	workflow *workflow.Manager
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu        sync.RWMutex
	preflight []preflight.Result
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	DatabasePath string
	LockFilePath string
	APIAddress   string
	Preflight    []preflight.Result
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, registry queue.Registry, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || registry == nil || wf == nil {
		return nil, errors.New("daemon requires config, registry, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		registry: registry,
		workflow: wf,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, then launches the workflow manager, the
// metrics monitor and the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another avatarstudio daemon instance is already running")
	}

	d.runPreflight(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		cancel()
		d.workflow.Stop()
		_ = d.lock.Unlock()
		return err
	}
	if d.cfg.Monitoring.Enabled {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.workflow.Monitor().Run(runCtx)
		}()
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("avatarstudio daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.address()),
		logging.Bool("monitoring", d.cfg.Monitoring.Enabled),
	)
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.workflow.Stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove the lock file if no daemon is running"),
			logging.String(logging.FieldImpact, "next start may report another instance"),
		)
	}
	d.running.Store(false)
	d.logger.Info("avatarstudio daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.registry != nil {
		return d.registry.Close()
	}
	return nil
}

// Handler exposes the API routes, including authentication.
func (d *Daemon) Handler() http.Handler {
	return d.api.handler
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	d.mu.RLock()
	checks := append([]preflight.Result(nil), d.preflight...)
	d.mu.RUnlock()
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     d.workflow.Summary(ctx),
		LockFilePath: d.lockPath,
		APIAddress:   d.api.address(),
		Preflight:    checks,
	}
	if d.cfg.Workflow.Store != config.StoreMemory {
		status.DatabasePath = d.cfg.DatabasePath()
	}
	return status
}

func (d *Daemon) runPreflight(ctx context.Context) {
	results := preflight.RunAll(ctx, d.cfg)
	d.mu.Lock()
	d.preflight = results
	d.mu.Unlock()
	for _, failed := range preflight.Failed(results) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", failed.Name),
			logging.String("detail", failed.Detail),
			logging.String(logging.FieldErrorHint, "fix the reported path or notification settings"),
			logging.String(logging.FieldImpact, "jobs may fail when writing artifacts or notifications are lost"),
		)
	}
}
