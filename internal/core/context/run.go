// Package context provides run-scoped values extraction.
package context

import (
	"context"
	"time"

	"feedvalidator/internal/core/id"
)

// RunContext identifies one validation run of one feed.
type RunContext struct {
	RunID     string
	Feed      string // input path or uploaded file name
	StartedAt time.Time
}

type runContextKey struct{}

// NewRunContext creates a RunContext with a fresh time-ordered run ID.
func NewRunContext(feed string) *RunContext {
	return &RunContext{
		RunID:     id.New().String(),
		Feed:      feed,
		StartedAt: time.Now().UTC(),
	}
}

// LogFields returns the key-value pairs a log line carries for this run.
func (r *RunContext) LogFields() []any {
	if r == nil {
		return nil
	}
	return []any{"run_id", r.RunID, "feed", r.Feed}
}

// WithRun adds RunContext to context.
func WithRun(ctx context.Context, run *RunContext) context.Context {
	return context.WithValue(ctx, runContextKey{}, run)
}

// GetRun returns RunContext from context.
func GetRun(ctx context.Context) *RunContext {
	if v, ok := ctx.Value(runContextKey{}).(*RunContext); ok {
		return v
	}
	return nil
}

// GetRunID returns run ID from context or empty string.
func GetRunID(ctx context.Context) string {
	if r := GetRun(ctx); r != nil {
		return r.RunID
	}
	return ""
}
