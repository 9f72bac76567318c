package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"avatarstudio/internal/api"
	"avatarstudio/internal/pipelineconfig"
	"avatarstudio/internal/services"
)

func newTestClient(t *testing.T, token string, handler http.HandlerFunc) *api.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := api.NewClient(strings.TrimPrefix(srv.URL, "http://"), token)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestClientSubmitSendsRequest(t *testing.T) {
	var got api.SubmitRequest
	var auth string
	client := newTestClient(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/jobs" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(api.SubmitResponse{JobID: "job_1"})
	})

	id, err := client.Submit(context.Background(), api.SubmitRequest{
		Text:   "Olá",
		Config: pipelineconfig.Partial{TTS: pipelineconfig.TTSPartial{Speed: pipelineconfig.Ptr(1.5)}},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id != "job_1" {
		t.Fatalf("unexpected id %q", id)
	}
	if auth != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if got.Text != "Olá" || got.Config.TTS.Speed == nil || *got.Config.TTS.Speed != 1.5 {
		t.Fatalf("unexpected request body %+v", got)
	}
}

func TestClientMapsNotFound(t *testing.T) {
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: `job "job_x" not found`, Code: services.CodeNotFound})
	})

	_, err := client.Job(context.Background(), "job_x")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected api error with status, got %#v", err)
	}
}

func TestClientJobsEncodesFilter(t *testing.T) {
	var query string
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(api.JobListResponse{Jobs: []api.Job{{ID: "job_1", Status: "queued"}}})
	})

	jobs, err := client.Jobs(context.Background(), []string{"queued", " ", "failed"}, 5)
	if err != nil {
		t.Fatalf("Jobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != "job_1" {
		t.Fatalf("unexpected jobs %+v", jobs)
	}
	if query != "limit=5&status=queued&status=failed" {
		t.Fatalf("unexpected query %q", query)
	}
}

func TestClientAlertsEncodesFilter(t *testing.T) {
	var query string
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(api.AlertListResponse{})
	})

	resolved := false
	if _, err := client.Alerts(context.Background(), api.AlertQuery{Resolved: &resolved, Severity: "critical"}); err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	if query != "resolved=false&severity=critical" {
		t.Fatalf("unexpected query %q", query)
	}
}

func TestClientUnauthorized(t *testing.T) {
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	})

	_, err := client.Stages(context.Background())
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected api error, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Message != "unauthorized" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestNewClientRejectsEmptyBind(t *testing.T) {
	if _, err := api.NewClient("  ", ""); err == nil {
		t.Fatal("expected error for empty bind")
	}
}
