package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStart marks a begin-job call that failed or was rejected by the backend.
	ErrStart = errors.New("job start rejected")
	// ErrTransient marks a recoverable failure such as a dropped poll.
	ErrTransient = errors.New("transient failure")
	// ErrTimeout marks a backend call that exceeded its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrJobFailed marks a job the backend reported as terminally failed.
	ErrJobFailed = errors.New("job failed")
	// ErrPublish marks a rejected upload.
	ErrPublish = errors.New("publish rejected")
	// ErrDevice marks a microphone or capture failure.
	ErrDevice        = errors.New("device error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	// ErrBusy marks an action refused because conflicting work is in flight.
	ErrBusy = errors.New("busy")
)

// Wrap builds an error message that includes component context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

type hintError struct {
	err  error
	hint string
}

func (e *hintError) Error() string { return e.err.Error() }

func (e *hintError) Unwrap() error { return e.err }

// WithHint attaches a remediation hint shown alongside the error.
func WithHint(err error, hint string) error {
	hint = strings.TrimSpace(hint)
	if err == nil || hint == "" {
		return err
	}
	return &hintError{err: err, hint: hint}
}

// Hint returns the outermost remediation hint attached to err, if any.
func Hint(err error) string {
	var h *hintError
	if errors.As(err, &h) {
		return h.hint
	}
	return ""
}

// ErrorDetails summarizes an error for logs and API payloads.
type ErrorDetails struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// Details classifies err by marker and extracts its hint.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	return ErrorDetails{Kind: Kind(err), Message: err.Error(), Hint: Hint(err)}
}

// Kind returns a short stable label for the marker carried by err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStart):
		return "start"
	case errors.Is(err, ErrJobFailed):
		return "job"
	case errors.Is(err, ErrPublish):
		return "publish"
	case errors.Is(err, ErrDevice):
		return "device"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrTransient):
		return "transient"
	default:
		return "internal"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
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
