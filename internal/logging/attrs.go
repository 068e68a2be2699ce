package logging

import (
	"context"
	"log/slog"
	"time"
)

type Attr = slog.Attr

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// JobKind tags a record with the job kind it concerns. It accepts any string
// kind so callers pass their own typed constants.
func JobKind[K ~string](kind K) Attr { return slog.String(FieldJobKind, string(kind)) }

// JobID tags a record with one job instance.
func JobID(id string) Attr { return slog.String(FieldJobID, id) }

// Mode tags a record with the top-level mode it concerns.
func Mode[M ~string](mode M) Attr { return slog.String(FieldMode, string(mode)) }

// Event classifies a record for filtering.
func Event(eventType string) Attr { return slog.String(FieldEventType, eventType) }

// Hint carries the next step an operator should take.
func Hint(hint string) Attr { return slog.String(FieldErrorHint, hint) }

func Impact(impact string) Attr { return slog.String(FieldImpact, impact) }

func Alert(value string) Attr { return slog.String(FieldAlert, value) }

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewComponentLogger creates a logger with a standardized component attribute.
// If logger is nil, a no-op logger is used as the base.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

const (
	defaultHint   = "check logs for details"
	defaultImpact = "operation did not complete"
)

// WarnWithContext logs a warning that always carries event_type, error_hint
// and impact. Fields the caller leaves out get generic values.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = withDefaults(attrs, Event(eventType), Hint(defaultHint), Impact(defaultImpact))
	logger.LogAttrs(context.Background(), slog.LevelWarn, msg, attrs...)
}

// ErrorWithContext logs an error that always carries event_type and error_hint.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = withDefaults(attrs, Event(eventType), Hint(defaultHint))
	logger.LogAttrs(context.Background(), slog.LevelError, msg, attrs...)
}

// withDefaults appends each default whose key attrs does not set.
func withDefaults(attrs []Attr, defaults ...Attr) []Attr {
	set := make(map[string]struct{}, len(attrs))
	for _, a := range attrs {
		set[a.Key] = struct{}{}
	}
	for _, d := range defaults {
		if _, ok := set[d.Key]; !ok {
			attrs = append(attrs, d)
		}
	}
	return attrs
}
