package stage

import "context"

// Health summarizes the readiness of a pipeline stage.
type Health struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// Check reports the health of executor under name. Executors without a
// HealthCheck method are assumed ready; a nil executor is reported missing.
func Check(ctx context.Context, name string, executor any) Health {
	if executor == nil {
		return Unhealthy(name, "executor not configured")
	}
	if checker, ok := executor.(HealthChecker); ok {
		h := checker.HealthCheck(ctx)
		if h.Name == "" {
			h.Name = name
		}
		return h
	}
	return Healthy(name)
}
