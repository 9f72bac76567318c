// Package api defines wire-format types, converters and the HTTP client for
// the daemon API. It translates workflow and monitoring models into
// transport-friendly DTOs that the CLI and other consumers can render without
// coupling to internal types.
//
// # Key Types
//
// Job: transport representation of a render job with progress, stage
// timings, output and failure details.
//
// SubmitRequest/SubmitResponse: payloads for enqueuing a render.
//
// WorkflowStatus: orchestrator running state, queue depth, job counts and
// stage health.
//
// HealthResponse, MetricsResponse, AlertListResponse: monitoring payloads.
//
// ErrorResponse: failure body carrying the machine readable error code.
//
// # Converters
//
// FromStatusView: workflow.StatusView -> Job.
//
// FromStatusSummary: workflow.StatusSummary -> WorkflowStatus.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds and
// durations are exposed as integer milliseconds. Client maps error responses
// back onto the services error kinds so callers can use errors.Is.
package api
