package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind is the closed classification of pipeline failures.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindStage         Kind = "stage"
	KindTimeout       Kind = "timeout"
	KindCancelled     Kind = "cancelled"
	KindNotFound      Kind = "not_found"
	KindConfiguration Kind = "configuration"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrStage         = errors.New("stage error")
	ErrTimeout       = errors.New("timeout")
	ErrCancelled     = errors.New("cancelled")
	ErrNotFound      = errors.New("not found")
	ErrConfiguration = errors.New("configuration error")
)

// Error codes surfaced on failed jobs. Executors may use their own codes for
// stage failures; these cover the kinds the orchestrator produces itself.
const (
	CodeValidation  = "VALIDATION_FAILED"
	CodeStageFailed = "STAGE_FAILED"
	CodeTimeout     = "TIMEOUT"
	CodeCancelled   = "USER_CANCELLED"
	CodeNotFound    = "NOT_FOUND"
)

// Error is the typed failure returned by stage executors and the orchestrator.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = string(e.Kind) + " failure"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap exposes both the kind marker and the underlying cause so errors.Is
// matches either.
func (e *Error) Unwrap() []error {
	if e == nil {
		return nil
	}
	out := make([]error, 0, 2)
	if marker := e.Kind.marker(); marker != nil {
		out = append(out, marker)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// ErrorKind returns the kind as a plain string.
func (e *Error) ErrorKind() string {
	if e == nil {
		return ""
	}
	return string(e.Kind)
}

func (k Kind) marker() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindStage:
		return ErrStage
	case KindTimeout:
		return ErrTimeout
	case KindCancelled:
		return ErrCancelled
	case KindNotFound:
		return ErrNotFound
	case KindConfiguration:
		return ErrConfiguration
	default:
		return nil
	}
}

// Validation builds a validation failure.
func Validation(message string, details map[string]any) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: message, Details: details}
}

// StageFailure builds a stage failure carrying an executor-specific code.
func StageFailure(code, message string, details map[string]any, cause error) *Error {
	if strings.TrimSpace(code) == "" {
		code = CodeStageFailed
	}
	return &Error{Kind: KindStage, Code: code, Message: message, Details: details, Cause: cause}
}

// Timeout builds a timeout failure.
func Timeout(message string, cause error) *Error {
	return &Error{Kind: KindTimeout, Code: CodeTimeout, Message: message, Cause: cause}
}

// Cancelled builds a user cancellation failure.
func Cancelled(message string) *Error {
	return &Error{Kind: KindCancelled, Code: CodeCancelled, Message: message}
}

// NotFound reports an unknown resource identifier.
func NotFound(resource, id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %q not found", resource, id),
		Details: map[string]any{"id": id},
	}
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrStage
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorDetails is the flattened view of a failure used when stamping jobs and
// emitting logs.
type ErrorDetails struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]any
	Cause   error
}

// Details classifies any error into the closed kind set. Plain errors are
// treated as stage failures; context errors map to timeout and cancellation.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	var typed *Error
	if errors.As(err, &typed) && typed != nil {
		return ErrorDetails{
			Kind:    typed.Kind,
			Code:    typed.Code,
			Message: strings.TrimSpace(typed.Message),
			Details: typed.Details,
			Cause:   typed.Cause,
		}
	}
	out := ErrorDetails{Message: strings.TrimSpace(err.Error()), Cause: err}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrTimeout):
		out.Kind, out.Code = KindTimeout, CodeTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, ErrCancelled):
		out.Kind, out.Code = KindCancelled, CodeCancelled
	case errors.Is(err, ErrValidation):
		out.Kind, out.Code = KindValidation, CodeValidation
	case errors.Is(err, ErrNotFound):
		out.Kind, out.Code = KindNotFound, CodeNotFound
	case errors.Is(err, ErrConfiguration):
		out.Kind, out.Code = KindConfiguration, CodeStageFailed
	default:
		out.Kind, out.Code = KindStage, CodeStageFailed
	}
	return out
}

// IsRetryable reports whether a failure may be retried by an executor.
// Validation, cancellation and timeout failures are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch Details(err).Kind {
	case KindValidation, KindCancelled, KindTimeout, KindNotFound, KindConfiguration:
		return false
	default:
		return true
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
