// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package ctxlog

import (
	"context"
	"errors"
	"log/slog"
)

type teeHandler []slog.Handler

// NewTee returns a handler that forwards every record to each of handlers
// that is enabled for the record's level.
func NewTee(handlers ...slog.Handler) slog.Handler {
	return teeHandler(handlers)
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error

	for _, h := range t {
		if !h.Enabled(ctx, r.Level) {
			continue
		}

		err = errors.Join(err, h.Handle(ctx, r.Clone()))
	}

	return err
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}

	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}

	return out
}
