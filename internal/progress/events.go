// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"time"
)

// Event is a lifecycle update for one descriptor of a batch.
type Event struct {
	Index     int       // Position of the descriptor in the submitted batch
	Total     int       // Number of descriptors in the batch
	Label     string    // Display label of the descriptor
	Type      EventType // What happened
	Message   string    // Human readable status message
	Timestamp time.Time // When the event occurred
	Data      EventData // Type-specific data
}

// EventType represents the type of progress event.
type EventType int

const (
	// EventQueued indicates the descriptor was accepted and waits for a worker.
	EventQueued EventType = iota
	// EventStarted indicates a worker spawned the child process.
	EventStarted
	// EventCompleted indicates the child exited with status zero.
	EventCompleted
	// EventFailed indicates a non-zero exit, a spawn failure or a timeout.
	EventFailed
	// EventCancelled indicates the batch was cancelled before or while the descriptor ran.
	EventCancelled
)

// String implements the Stringer interface for EventType.
func (et EventType) String() string {
	switch et {
	case EventQueued:
		return "queued"
	case EventStarted:
		return "started"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	case EventCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further events follow this one for the same descriptor.
func (et EventType) Terminal() bool {
	return et == EventCompleted || et == EventFailed || et == EventCancelled
}

// EventData contains type-specific information for progress events.
type EventData struct {
	Worker   int           // Worker that picked the descriptor up (EventStarted and terminal events)
	ExitCode int           // Exit code (terminal events)
	Error    error         // Failure cause, if any (terminal events)
	Duration time.Duration // Wall-clock run time (terminal events)
}

// Reporter receives progress events.
type Reporter interface {
	// Report sends an event. Implementations must not block the worker for long.
	Report(event Event)
	// Close signals that no more events will be sent.
	Close()
}

// Listener consumes events forwarded by a ChannelReporter.
type Listener interface {
	OnEvent(event Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(Event)

// OnEvent implements Listener.
func (f ListenerFunc) OnEvent(event Event) {
	f(event)
}
