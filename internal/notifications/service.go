package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"avatarstudio/internal/config"
)

const userAgent = "AvatarStudio-Go/0.1.0"

// Event identifies a notification kind.
type Event string

const (
	EventJobCompleted Event = "job_completed"
	EventJobFailed    Event = "job_failed"
	EventAlertRaised  Event = "alert_raised"
	EventTest         Event = "test"
)

// Payload carries event fields. Keys are event specific.
type Payload map[string]any

// Service defines the notification surface exposed to workflow components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventJobCompleted: cfg.Notifications.Completions,
			EventJobFailed:    cfg.Notifications.Failures,
			EventAlertRaised:  cfg.Notifications.Alerts,
			EventTest:         true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventJobCompleted:
		body := fmt.Sprintf("✅ Video ready: %s", payload.text("jobId"))
		details := compact([]string{payload.text("duration"), payload.text("size")})
		if len(details) > 0 {
			body += fmt.Sprintf(" (%s)", strings.Join(details, ", "))
		}
		return message{
			title: "AvatarStudio - Job Complete",
			body:  body,
			tags:  []string{"avatarstudio", "job", "completed"},
		}, true
	case EventJobFailed:
		var b strings.Builder
		fmt.Fprintf(&b, "❌ Job %s failed", payload.text("jobId"))
		if stage := payload.text("stage"); stage != "" {
			fmt.Fprintf(&b, " during %s", stage)
		}
		if code := payload.text("code"); code != "" {
			fmt.Fprintf(&b, " [%s]", code)
		}
		if reason := payload.text("error"); reason != "" {
			b.WriteString(": ")
			b.WriteString(reason)
		}
		return message{
			title:    "AvatarStudio - Job Failed",
			body:     b.String(),
			tags:     []string{"avatarstudio", "job", "failed"},
			priority: "high",
		}, true
	case EventAlertRaised:
		severity := payload.text("severity")
		priority := ""
		switch severity {
		case "critical":
			priority = "urgent"
		case "warning":
			priority = "high"
		}
		body := payload.text("title")
		if detail := payload.text("message"); detail != "" {
			body = fmt.Sprintf("%s\n%s", body, detail)
		}
		return message{
			title:    fmt.Sprintf("AvatarStudio - %s Alert", titleCase(severity)),
			body:     "⚠️ " + body,
			tags:     []string{"avatarstudio", "alert", payload.text("category")},
			priority: priority,
		}, true
	case EventTest:
		return message{
			title:    "AvatarStudio - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"avatarstudio", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (p Payload) text(key string) string {
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func titleCase(value string) string {
	return cases.Title(language.English).String(value)
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if tags := compact(msg.tags); len(tags) > 0 {
		req.Header.Set("Tags", strings.Join(tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func compact(tags []string) []string {
	out := tags[:0:0]
	for _, tag := range tags {
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
