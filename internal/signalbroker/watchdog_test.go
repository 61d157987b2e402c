// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matt-FFFFFF/pdp/internal/ctxlog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestWatch_FirstSignalCancels(t *testing.T) {
	defer goleak.VerifyNone(t)

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)

	var forced atomic.Bool

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()
		Watch(ctxlog.New(watchCtx, nil), sigCh, cancel, func() { forced.Store(true) })
	}()

	sigCh <- os.Interrupt

	select {
	case <-runCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("run context should be cancelled after the first signal")
	}

	assert.False(t, forced.Load())

	stopWatch()
	wg.Wait()
}

func TestWatch_SecondSignalForces(t *testing.T) {
	defer goleak.VerifyNone(t)

	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)

	done := make(chan struct{})

	var forced atomic.Bool

	go func() {
		defer close(done)
		Watch(context.Background(), sigCh, cancel, func() { forced.Store(true) })
	}()

	sigCh <- os.Interrupt
	sigCh <- os.Interrupt

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch should return after a repeated signal")
	}

	assert.True(t, forced.Load())
}

func TestWatch_DifferentSignalsDoNotForce(t *testing.T) {
	defer goleak.VerifyNone(t)

	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)

	var forced atomic.Bool

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()
		Watch(context.Background(), sigCh, cancel, func() { forced.Store(true) })
	}()

	sigCh <- os.Interrupt
	sigCh <- os.Kill

	close(sigCh)
	wg.Wait()

	assert.False(t, forced.Load())
}
