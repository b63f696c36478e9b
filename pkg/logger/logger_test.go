package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	appctx "feedvalidator/internal/core/context"
)

func TestFromContext_AddsRunFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := &Logger{zap.New(core).Sugar()}

	run := &appctx.RunContext{RunID: "run-1", Feed: "feed.zip"}
	ctx := appctx.WithRun(context.Background(), run)
	ctx = WithLogger(ctx, base)

	Info(ctx, "table loaded", "filename", "stops.txt")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "run-1", fields["run_id"])
	assert.Equal(t, "feed.zip", fields["feed"])
	assert.Equal(t, "stops.txt", fields["filename"])
}

func TestNew_FallsBackToInfoOnBadLevel(t *testing.T) {
	l, err := New(Config{Level: "loud", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	assert.False(t, l.Desugar().Core().Enabled(zap.DebugLevel))
	assert.True(t, l.Desugar().Core().Enabled(zap.InfoLevel))
}

func TestFromContext_AddsTraceAndTableFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := &Logger{zap.New(core).Sugar()}

	ctx := appctx.WithTrace(context.Background(), appctx.TraceFromHeaders("req-1", "trace-1"))
	ctx = WithTable(WithLogger(ctx, base), "stop_times.txt")

	Debug(ctx, "field cache stats", "field", "stop_id")
	Warn(context.Background(), "outside any run")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "trace-1", fields["trace_id"])
	assert.Equal(t, "stop_times.txt", fields["table"])
	assert.Equal(t, "stop_id", fields["field"])
	assert.NotContains(t, fields, "run_id")
}

func TestWithContext_NoFieldsKeepsLogger(t *testing.T) {
	l := Nop()
	assert.Same(t, l, l.WithContext(context.Background()))
}

func TestNew_DevelopmentHonorsLevel(t *testing.T) {
	l, err := New(Config{Level: "debug", Development: true})
	require.NoError(t, err)
	assert.True(t, l.Desugar().Core().Enabled(zap.DebugLevel))
}
