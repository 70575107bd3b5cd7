package infrastructure

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	stageKey   contextKey = "pipeline_stage"
)

// GenerateTraceID returns a fresh run ID
func GenerateTraceID() string {
	return uuid.New().String()
}

// WithTraceID attaches a run ID to ctx
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetTraceID returns the run ID carried by ctx, or ""
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}

// ContextWithTraceID attaches a freshly generated run ID
func ContextWithTraceID(ctx context.Context) context.Context {
	return WithTraceID(ctx, GenerateTraceID())
}

// EnsureTraceID keeps an existing run ID and generates one otherwise
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) == "" {
		return ContextWithTraceID(ctx)
	}
	return ctx
}

// WithStage marks ctx as running inside a pipeline stage
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey, stage)
}

// GetStage returns the pipeline stage carried by ctx, or ""
func GetStage(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	stage, _ := ctx.Value(stageKey).(string)
	return stage
}
