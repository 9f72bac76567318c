package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"avatarstudio/internal/config"
	"avatarstudio/internal/services"
)

const defaultClientTimeout = 15 * time.Second

// ErrDaemonUnavailable reports that no daemon answered on the API address.
var ErrDaemonUnavailable = errors.New("daemon unavailable")

// Error is a non-2xx API response.
type Error struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string]any
}

func (e *Error) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	}
	return msg
}

// Unwrap maps the response onto the services error kinds.
func (e *Error) Unwrap() error {
	switch {
	case e.Code == services.CodeNotFound || e.StatusCode == http.StatusNotFound:
		return services.ErrNotFound
	case e.Code == services.CodeValidation || e.StatusCode == http.StatusBadRequest:
		return services.ErrValidation
	default:
		return nil
	}
}

// Client talks to the daemon HTTP API.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// NewClient builds a client for the daemon listening on bind. bind may be a
// host:port pair or a full URL.
func NewClient(bind, token string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, errors.New("api bind address is empty")
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, fmt.Errorf("parse api address: %w", err)
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""
	return &Client{
		base:  base,
		token: strings.TrimSpace(token),
		http:  &http.Client{Timeout: defaultClientTimeout},
	}, nil
}

// NewClientFromConfig builds a client for the configured API address and
// token.
func NewClientFromConfig(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("configuration unavailable")
	}
	return NewClient(cfg.Paths.APIBind, cfg.Paths.APIToken)
}

// BaseURL returns the daemon address the client targets.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Submit enqueues a render and returns the job id.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	var resp SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/api/jobs", nil, req, &resp); err != nil {
		return "", err
	}
	return resp.JobID, nil
}

// Job returns one job. Unknown ids yield an error matching
// services.ErrNotFound.
func (c *Client) Job(ctx context.Context, id string) (Job, error) {
	var resp JobResponse
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id), nil, nil, &resp); err != nil {
		return Job{}, err
	}
	return resp.Job, nil
}

// Jobs lists jobs in submission order, optionally filtered by status.
func (c *Client) Jobs(ctx context.Context, statuses []string, limit int) ([]Job, error) {
	values := url.Values{}
	for _, status := range statuses {
		if status = strings.TrimSpace(status); status != "" {
			values.Add("status", status)
		}
	}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	var resp JobListResponse
	if err := c.do(ctx, http.MethodGet, "/api/jobs", values, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// Cancel requests cancellation. It reports false when the job had already
// reached a terminal state.
func (c *Client) Cancel(ctx context.Context, id string) (bool, error) {
	var resp CancelResponse
	if err := c.do(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(id)+"/cancel", nil, nil, &resp); err != nil {
		return false, err
	}
	return resp.Cancelled, nil
}

// Health returns the aggregated system health.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, nil, &resp); err != nil {
		return HealthResponse{}, err
	}
	return resp, nil
}

// MetricsQuery narrows the snapshot history. Zero values disable a bound.
type MetricsQuery struct {
	Limit int
	From  time.Time
	To    time.Time
}

// Metrics returns snapshot history, oldest first.
func (c *Client) Metrics(ctx context.Context, q MetricsQuery) ([]Snapshot, error) {
	values := url.Values{}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if !q.From.IsZero() {
		values.Set("from", formatTime(q.From))
	}
	if !q.To.IsZero() {
		values.Set("to", formatTime(q.To))
	}
	var resp MetricsResponse
	if err := c.do(ctx, http.MethodGet, "/api/metrics", values, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Snapshots, nil
}

// AlertQuery narrows the alert list. Nil or empty fields match everything.
type AlertQuery struct {
	Resolved *bool
	Severity string
	Category string
}

// Alerts returns matching alerts, newest first.
func (c *Client) Alerts(ctx context.Context, q AlertQuery) ([]Alert, error) {
	values := url.Values{}
	if q.Resolved != nil {
		values.Set("resolved", strconv.FormatBool(*q.Resolved))
	}
	if q.Severity != "" {
		values.Set("severity", q.Severity)
	}
	if q.Category != "" {
		values.Set("category", q.Category)
	}
	var resp AlertListResponse
	if err := c.do(ctx, http.MethodGet, "/api/alerts", values, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Alerts, nil
}

// ResolveAlert marks an alert resolved. It reports false when the alert is
// unknown or was already resolved.
func (c *Client) ResolveAlert(ctx context.Context, id string) (bool, error) {
	var resp ResolveAlertResponse
	if err := c.do(ctx, http.MethodPost, "/api/alerts/"+url.PathEscape(id)+"/resolve", nil, nil, &resp); err != nil {
		return false, err
	}
	return resp.Resolved, nil
}

// Stages returns executor readiness.
func (c *Client) Stages(ctx context.Context) ([]StageHealth, error) {
	var resp StageListResponse
	if err := c.do(ctx, http.MethodGet, "/api/stages", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Stages, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.wrapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		var payload ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			apiErr.Code = payload.Code
			apiErr.Message = payload.Error
			apiErr.Details = payload.Details
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) wrapTransportError(err error) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("%w: %s refused the connection; start the daemon with `avatarstudio serve`", ErrDaemonUnavailable, c.base.Host)
	}
	return fmt.Errorf("connect to daemon at %s: %w", c.base.Host, err)
}
