package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"avatarstudio/internal/api"
	"avatarstudio/internal/config"
	"avatarstudio/internal/daemon"
	"avatarstudio/internal/engines"
	"avatarstudio/internal/logging"
	"avatarstudio/internal/testsupport"
	"avatarstudio/internal/workflow"
)

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	configPath string
	apiAddress string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	registry := testsupport.MustOpenRegistry(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, workflow.Options{
		Registry:  registry,
		Executors: engines.New(cfg, logger),
		Logger:    logger,
	})
	d, err := daemon.New(cfg, registry, logger, mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		d.Stop()
	})

	return &cliTestEnv{
		cfg:        cfg,
		daemon:     d,
		configPath: configPath,
		apiAddress: d.Status(ctx).APIAddress,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
artifact_dir = %q
api_bind = %q

[workflow]
store = "memory"

[engines]
time_scale = 0
`, cfg.Paths.DataDir, cfg.Paths.LogDir, cfg.Paths.ArtifactDir, cfg.Paths.APIBind)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (env *cliTestEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", env.configPath, "--api", env.apiAddress}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSubmitWaitPrintsCompletedJob(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "", "submit", "--wait", "--poll", "10ms", "Olá", "mundo")
	if err != nil {
		t.Fatalf("submit failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "completed (100%)") {
		t.Fatalf("expected completed job in output:\n%s", out)
	}
	if !strings.Contains(out, "rendering") {
		t.Fatalf("expected stage timings in output:\n%s", out)
	}
}

func TestSubmitFromStdinAndListJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "Hello from stdin", "submit", "--file", "-", "--json", "--wait", "--poll", "10ms", "--meta", "project=demo")
	if err != nil {
		t.Fatalf("submit failed: %v\n%s", err, out)
	}
	var job api.Job
	if err := json.Unmarshal([]byte(out), &job); err != nil {
		t.Fatalf("decode submit output: %v\n%s", err, out)
	}
	if job.Status != "completed" || job.Metadata["project"] != "demo" {
		t.Fatalf("unexpected job %+v", job)
	}

	out, err = env.run(t, "", "jobs", "--json", "--status", "completed")
	if err != nil {
		t.Fatalf("jobs failed: %v\n%s", err, out)
	}
	var jobs []api.Job
	if err := json.Unmarshal([]byte(out), &jobs); err != nil {
		t.Fatalf("decode jobs output: %v\n%s", err, out)
	}
	if len(jobs) != 1 || jobs[0].ID != job.ID {
		t.Fatalf("unexpected jobs %+v", jobs)
	}
}

func TestSubmitRequiresScript(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := env.run(t, "", "submit"); err == nil {
		t.Fatal("expected error without script")
	}
}

func TestStatusUnknownJobFails(t *testing.T) {
	env := setupCLITestEnv(t)

	_, err := env.run(t, "", "status", "job_missing")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestCancelFinishedJob(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "", "submit", "--json", "--wait", "--poll", "10ms", "Short line")
	if err != nil {
		t.Fatalf("submit failed: %v\n%s", err, out)
	}
	var job api.Job
	if err := json.Unmarshal([]byte(out), &job); err != nil {
		t.Fatalf("decode submit output: %v", err)
	}
	out, err = env.run(t, "", "cancel", job.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if !strings.Contains(out, "already finished") {
		t.Fatalf("unexpected cancel output %q", out)
	}
}

func TestHealthShowsStages(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "", "health")
	if err != nil {
		t.Fatalf("health failed: %v\n%s", err, out)
	}
	for _, want := range []string{"== System ==", "Workflow:", "[OK] Running", "tts:", "renderer:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestAlertsListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "", "alerts", "list")
	if err != nil {
		t.Fatalf("alerts list failed: %v", err)
	}
	if strings.TrimSpace(out) != "No alerts" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if string(data) != config.SampleConfig() {
		t.Fatal("sample config content mismatch")
	}

	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected existing file to be refused without --overwrite")
	}
}

func TestConfigShowRedactsToken(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, path, cfg)
	t.Setenv("AVATARSTUDIO_API_TOKEN", "super-secret")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", path, "config", "show"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if strings.Contains(out.String(), "super-secret") {
		t.Fatalf("token leaked in output:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "<redacted>") {
		t.Fatalf("expected redacted token:\n%s", out.String())
	}
}
