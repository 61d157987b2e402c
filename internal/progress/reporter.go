// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"sync"
)

// ChannelReporter implements Reporter on top of a buffered channel.
// Report never blocks: when the buffer is full or the reporter is closed the event is dropped.
type ChannelReporter struct {
	ch     chan Event
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewChannelReporter creates a ChannelReporter with the given buffer size.
func NewChannelReporter(bufferSize int) *ChannelReporter {
	return &ChannelReporter{
		ch: make(chan Event, bufferSize),
	}
}

// Report implements Reporter.
func (cr *ChannelReporter) Report(event Event) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	if cr.closed {
		return
	}

	select {
	case cr.ch <- event:
	default:
	}
}

// Close implements Reporter. It closes the channel and waits for listeners
// started with Listen to drain it. Close is idempotent.
func (cr *ChannelReporter) Close() {
	cr.mu.Lock()

	if cr.closed {
		cr.mu.Unlock()
		return
	}

	cr.closed = true
	close(cr.ch)
	cr.mu.Unlock()

	cr.wg.Wait()
}

// Listen forwards every event to listener from a new goroutine until Close.
func (cr *ChannelReporter) Listen(listener Listener) {
	cr.wg.Add(1)

	go func() {
		defer cr.wg.Done()

		for event := range cr.ch {
			listener.OnEvent(event)
		}
	}()
}

// Events returns the underlying channel for callers that prefer to range over it.
// Do not combine with Listen.
func (cr *ChannelReporter) Events() <-chan Event {
	return cr.ch
}

// NullReporter discards every event.
type NullReporter struct{}

// Report implements Reporter.
func (NullReporter) Report(Event) {}

// Close implements Reporter.
func (NullReporter) Close() {}
