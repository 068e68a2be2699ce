package services

import "context"

type contextKey string

const (
	jobKindKey   contextKey = "job_kind"
	stageKey     contextKey = "stage"
	requestIDKey contextKey = "request_id"
)

// WithJobKind annotates context with the job kind being driven.
func WithJobKind(ctx context.Context, kind string) context.Context {
	if kind == "" {
		return ctx
	}
	return context.WithValue(ctx, jobKindKey, kind)
}

// JobKindFromContext returns the job kind if present.
func JobKindFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(jobKindKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the agent stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
