package daemon_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"avatarstudio/internal/api"
	"avatarstudio/internal/config"
	"avatarstudio/internal/daemon"
	"avatarstudio/internal/logging"
	"avatarstudio/internal/monitoring"
	"avatarstudio/internal/services"
	"avatarstudio/internal/stage"
	"avatarstudio/internal/testsupport"
	"avatarstudio/internal/workflow"
)

type harness struct {
	cfg    *config.Config
	daemon *daemon.Daemon
	stubs  *testsupport.StubExecutors
	client *api.Client
}

func newHarness(t *testing.T, monitor *monitoring.Monitor, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	registry := testsupport.MustOpenRegistry(t, cfg)
	stubs := testsupport.NewStubExecutors()
	mgr := workflow.NewManager(cfg, workflow.Options{
		Registry:  registry,
		Executors: stubs.Set(),
		Monitor:   monitor,
		Logger:    logging.NewNop(),
	})
	d, err := daemon.New(cfg, registry, logging.NewNop(), mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return &harness{cfg: cfg, daemon: d, stubs: stubs}
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	if err := h.daemon.Start(ctx); err != nil {
		cancel()
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		h.daemon.Stop()
	})
	client, err := api.NewClient(h.daemon.Status(ctx).APIAddress, h.cfg.Paths.APIToken)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	h.client = client
}

func (h *harness) waitForStatus(t *testing.T, id, status string) api.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		job, err := h.client.Job(context.Background(), id)
		if err != nil {
			t.Fatalf("Job: %v", err)
		}
		if job.Status == status {
			return job
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %s still %s, want %s", id, job.Status, status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDaemonStartStop(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := h.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := h.daemon.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if !status.Workflow.Running {
		t.Fatal("expected workflow to report running")
	}
	if status.APIAddress == "127.0.0.1:0" {
		t.Fatalf("expected bound address, got %q", status.APIAddress)
	}
	if len(status.Preflight) == 0 {
		t.Fatal("expected preflight results")
	}

	// Second start should fail
	if err := h.daemon.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	other := flock.New(h.cfg.LockPath())
	if ok, err := other.TryLock(); err != nil || ok {
		t.Fatalf("expected lock to be held, got ok=%v err=%v", ok, err)
	}

	h.daemon.Stop()
	status = h.daemon.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
	if ok, err := other.TryLock(); err != nil || !ok {
		t.Fatalf("expected lock to be released, got ok=%v err=%v", ok, err)
	}
	_ = other.Unlock()
}

func TestSecondDaemonInstanceRefused(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)

	registry := testsupport.MustOpenRegistry(t, h.cfg)
	mgr := workflow.NewManager(h.cfg, workflow.Options{Registry: registry, Executors: h.stubs.Set(), Logger: logging.NewNop()})
	second, err := daemon.New(h.cfg, registry, logging.NewNop(), mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second instance to be refused")
	}
}

func TestAPISubmitAndPoll(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)
	ctx := context.Background()

	id, err := h.client.Submit(ctx, api.SubmitRequest{Text: "Olá", Metadata: map[string]any{"project": "demo"}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	job := h.waitForStatus(t, id, "completed")
	if job.Progress != 100 || job.Error != nil {
		t.Fatalf("unexpected completed job %+v", job)
	}
	if job.Output == nil || job.Output.DurationMs <= 0 {
		t.Fatalf("expected output with duration, got %+v", job.Output)
	}
	if job.Metadata["project"] != "demo" {
		t.Fatalf("metadata not preserved: %+v", job.Metadata)
	}

	jobs, err := h.client.Jobs(ctx, []string{"completed"}, 0)
	if err != nil {
		t.Fatalf("Jobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != id {
		t.Fatalf("unexpected job list %+v", jobs)
	}
}

func TestAPIEmptyTextFailsJob(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)

	id, err := h.client.Submit(context.Background(), api.SubmitRequest{Text: "   "})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	job := h.waitForStatus(t, id, "failed")
	if job.Error == nil || job.Error.Code != services.CodeValidation || job.Error.Stage != "preprocessing" {
		t.Fatalf("unexpected error %+v", job.Error)
	}
}

func TestAPIUnknownJobNotFound(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)

	_, err := h.client.Job(context.Background(), "job_missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := h.client.Cancel(context.Background(), "job_missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found on cancel, got %v", err)
	}
}

func TestAPICancelRunningJob(t *testing.T) {
	h := newHarness(t, nil)
	release := h.stubs.Block(testsupport.StageRenderer)
	defer release()
	h.start(t)
	ctx := context.Background()

	id, err := h.client.Submit(ctx, api.SubmitRequest{Text: "Hello there"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	h.waitForStatus(t, id, "rendering")

	cancelled, err := h.client.Cancel(ctx, id)
	if err != nil || !cancelled {
		t.Fatalf("Cancel = %v, %v", cancelled, err)
	}
	job := h.waitForStatus(t, id, "failed")
	if job.Error == nil || job.Error.Code != services.CodeCancelled || job.Error.Stage != "rendering" {
		t.Fatalf("unexpected error %+v", job.Error)
	}

	again, err := h.client.Cancel(ctx, id)
	if err != nil || again {
		t.Fatalf("second cancel = %v, %v", again, err)
	}
}

func TestAPIRejectsUnknownStatusFilter(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)

	_, err := h.client.Jobs(context.Background(), []string{"paused"}, 0)
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest || apiErr.Code != services.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	h := newHarness(t, nil, testsupport.WithAPIToken("secret"))
	h.start(t)

	if _, err := h.client.Stages(context.Background()); err != nil {
		t.Fatalf("authorized request failed: %v", err)
	}

	anonymous, err := api.NewClient(h.daemon.Status(context.Background()).APIAddress, "")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = anonymous.Stages(context.Background())
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestAPIStagesAndHealth(t *testing.T) {
	h := newHarness(t, nil)
	h.stubs.SetHealth(testsupport.StageLipSync, stage.Unhealthy("lipsync", "model missing"))
	h.start(t)
	ctx := context.Background()

	stages, err := h.client.Stages(ctx)
	if err != nil {
		t.Fatalf("Stages: %v", err)
	}
	if len(stages) != 4 {
		t.Fatalf("expected four stages, got %+v", stages)
	}
	if stages[1].Name != "lipsync" || stages[1].Ready {
		t.Fatalf("expected unhealthy lipsync, got %+v", stages[1])
	}

	health, err := h.client.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if !health.Workflow.Running || health.PID == 0 {
		t.Fatalf("unexpected health %+v", health)
	}
	if health.Health.Status != monitoring.HealthHealthy && health.Health.Status != monitoring.HealthWarning && health.Health.Status != monitoring.HealthCritical {
		t.Fatalf("unexpected health status %q", health.Health.Status)
	}
}

func TestAPIAlertsListAndResolve(t *testing.T) {
	monitor := monitoring.New(monitoring.Options{
		AlertsEnabled: true,
		Thresholds:    monitoring.Thresholds{MemoryPercent: 80},
		Memory:        func() float64 { return 95 },
		Logger:        logging.NewNop(),
	})
	h := newHarness(t, monitor)
	h.start(t)
	ctx := context.Background()

	monitor.Tick(ctx)

	snaps, err := h.client.Metrics(ctx, api.MetricsQuery{Limit: 10})
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	if len(snaps) != 1 || snaps[0].MemoryPercent != 95 {
		t.Fatalf("unexpected snapshots %+v", snaps)
	}

	unresolved := false
	alerts, err := h.client.Alerts(ctx, api.AlertQuery{Resolved: &unresolved, Severity: "critical"})
	if err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Category != "system" {
		t.Fatalf("unexpected alerts %+v", alerts)
	}

	resolved, err := h.client.ResolveAlert(ctx, alerts[0].ID)
	if err != nil || !resolved {
		t.Fatalf("ResolveAlert = %v, %v", resolved, err)
	}
	again, err := h.client.ResolveAlert(ctx, alerts[0].ID)
	if err != nil || again {
		t.Fatalf("second ResolveAlert = %v, %v", again, err)
	}

	remaining, err := h.client.Alerts(ctx, api.AlertQuery{Resolved: &unresolved})
	if err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected no unresolved alerts, got %+v", remaining)
	}
}
