// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package ctxlog

import (
	"context"
	"io"
	"log/slog"
	"os"
)

const pdpLogLevelEnvVar = "PDP_LOG_LEVEL"

type loggerKey struct{}

// LevelVar is the level shared by every logger created in this package.
var LevelVar = &slog.LevelVar{}

// DefaultLogger is the console logger used when none is stored in the context.
var DefaultLogger = slog.New(NewPrettyHandler(
	&slog.HandlerOptions{Level: LevelVar},
	WithAutoColour(),
	WithDestinationWriter(os.Stderr),
))

func init() {
	LevelVar.Set(logLevelFromEnv())
}

// New returns a copy of ctx carrying logger.
// A nil logger stores DefaultLogger.
func New(ctx context.Context, logger *slog.Logger) context.Context {
	if logger == nil {
		logger = DefaultLogger
	}

	return context.WithValue(ctx, loggerKey{}, logger)
}

// Logger returns the logger from the context, or the default logger if not found.
func Logger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(loggerKey{}).(*slog.Logger)
	if !ok || logger == nil {
		return DefaultLogger
	}

	return logger
}

// Info logs at info level with the logger held in ctx.
func Info(ctx context.Context, msg string, args ...any) {
	Logger(ctx).Info(msg, args...)
}

// Debug logs at debug level with the logger held in ctx.
func Debug(ctx context.Context, msg string, args ...any) {
	Logger(ctx).Debug(msg, args...)
}

// Warn logs at warn level with the logger held in ctx.
func Warn(ctx context.Context, msg string, args ...any) {
	Logger(ctx).Warn(msg, args...)
}

// Error logs at error level with the logger held in ctx.
func Error(ctx context.Context, msg string, args ...any) {
	Logger(ctx).Error(msg, args...)
}

// SetVerbose lowers the shared level to INFO when verbose is true.
// A more detailed level that is already set (e.g. DEBUG from the environment) is kept.
func SetVerbose(verbose bool) {
	if verbose && LevelVar.Level() > slog.LevelInfo {
		LevelVar.Set(slog.LevelInfo)
	}
}

// WithLogFile returns a logger that writes to the console like DefaultLogger
// and also appends plain text records to w.
// The file receives INFO and above, or everything LevelVar allows if that is more.
func WithLogFile(w io.Writer) *slog.Logger {
	file := slog.NewTextHandler(w, &slog.HandlerOptions{Level: fileLevel{}})

	return slog.New(NewTee(DefaultLogger.Handler(), file))
}

type fileLevel struct{}

func (fileLevel) Level() slog.Level {
	return min(LevelVar.Level(), slog.LevelInfo)
}

func logLevelFromEnv() slog.Level {
	switch os.Getenv(pdpLogLevelEnvVar) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
