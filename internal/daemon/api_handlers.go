package daemon

import (
	"net/http"
	"strconv"
	"strings"

	"avatarstudio/internal/api"
	"avatarstudio/internal/monitoring"
	"avatarstudio/internal/queue"
	"avatarstudio/internal/services"
)

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitRequest
	if !s.decode(w, r, &req) {
		return
	}
	id, err := s.daemon.workflow.Submit(r.Context(), req.Text, req.Config, req.Metadata)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.SubmitResponse{JobID: id})
}

func (s *apiServer) handleListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var filter queue.Filter
	for _, value := range query["status"] {
		if strings.TrimSpace(value) == "" {
			continue
		}
		status, ok := queue.ParseStatus(value)
		if !ok {
			s.writeError(w, services.Validation("unknown job status", map[string]any{"status": value}))
			return
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.writeError(w, services.Validation("limit must be a non-negative integer", map[string]any{"limit": raw}))
			return
		}
		filter.Limit = limit
	}
	views, err := s.daemon.workflow.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: api.FromStatusViews(views)})
}

func (s *apiServer) handleGetJob(w http.ResponseWriter, r *http.Request) {
	view, err := s.daemon.workflow.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: api.FromStatusView(view)})
}

func (s *apiServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	cancelled, err := s.daemon.workflow.Cancel(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CancelResponse{JobID: id, Cancelled: cancelled})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	monitor := s.daemon.workflow.Monitor()
	s.writeJSON(w, http.StatusOK, api.HealthResponse{
		Health:      monitor.Health(),
		Workflow:    api.FromStatusSummary(status.Workflow),
		Performance: api.FromSummary(monitor.Summary()),
		PID:         status.PID,
		DatabaseDSN: status.DatabasePath,
		LockPath:    status.LockFilePath,
	})
}

func (s *apiServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var filter monitoring.MetricsFilter
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.writeError(w, services.Validation("limit must be a non-negative integer", map[string]any{"limit": raw}))
			return
		}
		filter.Limit = limit
	}
	var err error
	if filter.From, err = api.ParseTime(query.Get("from")); err != nil {
		s.writeError(w, services.Validation("from must be an RFC3339 timestamp", map[string]any{"from": query.Get("from")}))
		return
	}
	if filter.To, err = api.ParseTime(query.Get("to")); err != nil {
		s.writeError(w, services.Validation("to must be an RFC3339 timestamp", map[string]any{"to": query.Get("to")}))
		return
	}
	snaps := s.daemon.workflow.Monitor().ListMetrics(filter)
	s.writeJSON(w, http.StatusOK, api.MetricsResponse{Snapshots: api.FromSnapshots(snaps)})
}

func (s *apiServer) handleAlerts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := monitoring.AlertFilter{
		Severity: monitoring.Severity(strings.ToLower(strings.TrimSpace(query.Get("severity")))),
		Category: monitoring.Category(strings.ToLower(strings.TrimSpace(query.Get("category")))),
	}
	if raw := query.Get("resolved"); raw != "" {
		resolved, err := strconv.ParseBool(raw)
		if err != nil {
			s.writeError(w, services.Validation("resolved must be true or false", map[string]any{"resolved": raw}))
			return
		}
		filter.Resolved = &resolved
	}
	alerts := s.daemon.workflow.Monitor().ListAlerts(filter)
	s.writeJSON(w, http.StatusOK, api.AlertListResponse{Alerts: api.FromAlerts(alerts)})
}

func (s *apiServer) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	resolved := s.daemon.workflow.Monitor().ResolveAlert(id)
	s.writeJSON(w, http.StatusOK, api.ResolveAlertResponse{AlertID: id, Resolved: resolved})
}

func (s *apiServer) handleStages(w http.ResponseWriter, r *http.Request) {
	health := s.daemon.workflow.StageHealth(r.Context())
	s.writeJSON(w, http.StatusOK, api.StageListResponse{Stages: api.StageHealthSlice(health)})
}

func errorResponse(details services.ErrorDetails) api.ErrorResponse {
	return api.ErrorResponse{
		Error:   details.Message,
		Code:    details.Code,
		Details: details.Details,
	}
}
