// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	custom := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	tests := []struct {
		name string
		ctx  context.Context
		want *slog.Logger
	}{
		{
			name: "context with logger",
			ctx:  New(context.Background(), custom),
			want: custom,
		},
		{
			name: "New with nil logger stores default",
			ctx:  New(context.Background(), nil),
			want: DefaultLogger,
		},
		{
			name: "context without logger",
			ctx:  context.Background(),
			want: DefaultLogger,
		},
		{
			name: "context with wrong type value",
			ctx:  context.WithValue(context.Background(), loggerKey{}, "not a logger"),
			want: DefaultLogger,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Same(t, tt.want, Logger(tt.ctx))
		})
	}
}

func TestLoggingFunctions(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := New(context.Background(), logger)

	tests := []struct {
		name    string
		logFunc func(context.Context, string, ...any)
		level   string
	}{
		{name: "info", logFunc: Info, level: "INFO"},
		{name: "debug", logFunc: Debug, level: "DEBUG"},
		{name: "warn", logFunc: Warn, level: "WARN"},
		{name: "error", logFunc: Error, level: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.logFunc(ctx, "message for "+tt.name, "key", "value")

			out := buf.String()
			assert.Contains(t, out, tt.level)
			assert.Contains(t, out, "message for "+tt.name)
			assert.Contains(t, out, "key=value")
		})
	}
}

func TestLogLevelFromEnv(t *testing.T) {
	tests := []struct {
		envValue string
		want     slog.Level
	}{
		{envValue: "DEBUG", want: slog.LevelDebug},
		{envValue: "INFO", want: slog.LevelInfo},
		{envValue: "WARN", want: slog.LevelWarn},
		{envValue: "ERROR", want: slog.LevelError},
		{envValue: "chatty", want: slog.LevelWarn},
		{envValue: "", want: slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run("value "+tt.envValue, func(t *testing.T) {
			t.Setenv(pdpLogLevelEnvVar, tt.envValue)
			assert.Equal(t, tt.want, logLevelFromEnv())
		})
	}
}

func TestSetVerbose(t *testing.T) {
	original := LevelVar.Level()
	defer LevelVar.Set(original)

	LevelVar.Set(slog.LevelWarn)
	SetVerbose(false)
	assert.Equal(t, slog.LevelWarn, LevelVar.Level())

	SetVerbose(true)
	assert.Equal(t, slog.LevelInfo, LevelVar.Level())

	LevelVar.Set(slog.LevelDebug)
	SetVerbose(true)
	assert.Equal(t, slog.LevelDebug, LevelVar.Level(), "verbose must not hide debug output")
}

func TestWithLogFile(t *testing.T) {
	original := LevelVar.Level()
	defer LevelVar.Set(original)

	LevelVar.Set(slog.LevelWarn)

	var file bytes.Buffer

	logger := WithLogFile(&file)
	logger.Debug("too quiet")
	logger.Info("building command lines", "count", 3)

	out := file.String()
	require.NotEmpty(t, out)
	assert.Contains(t, out, "building command lines")
	assert.Contains(t, out, "count=3")
	assert.False(t, strings.Contains(out, "too quiet"), "debug records are not written at the default level")
}

func TestTee(t *testing.T) {
	var info, warn bytes.Buffer

	h := NewTee(
		slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&warn, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	logger := slog.New(h).With("batch", "b1").WithGroup("job")

	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))

	logger.Info("started", "index", 1)
	logger.Warn("slow", "index", 2)

	assert.Contains(t, info.String(), "started")
	assert.Contains(t, info.String(), "slow")
	assert.Contains(t, info.String(), "batch=b1")
	assert.Contains(t, info.String(), "job.index=1")
	assert.NotContains(t, warn.String(), "started")
	assert.Contains(t, warn.String(), "job.index=2")
}
