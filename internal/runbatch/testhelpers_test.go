// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"runtime"
	"sync"
	"testing"

	"github.com/matt-FFFFFF/pdp/internal/ctxlog"
	"github.com/matt-FFFFFF/pdp/internal/progress"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()

	if runtime.GOOS == goosWindows {
		t.Skip("uses POSIX shell commands")
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()

	return ctxlog.New(t.Context(), ctxlog.DefaultLogger)
}

func mustDescriptor(t *testing.T, text string) Descriptor {
	t.Helper()

	d, err := NewDescriptor("", text, nil)
	require.NoError(t, err)

	return d
}

// recordingReporter keeps every event and tracks how many descriptors are running at once.
type recordingReporter struct {
	mu         sync.Mutex
	events     []progress.Event
	running    int
	maxRunning int
	closed     bool
}

func (r *recordingReporter) Report(e progress.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, e)

	switch {
	case e.Type == progress.EventStarted:
		r.running++
		r.maxRunning = max(r.maxRunning, r.running)
	case e.Type.Terminal() && e.Message != "not started":
		r.running--
	}
}

func (r *recordingReporter) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
}

func (r *recordingReporter) byIndex() map[int][]progress.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[int][]progress.EventType)
	for _, e := range r.events {
		out[e.Index] = append(out[e.Index], e.Type)
	}

	return out
}
