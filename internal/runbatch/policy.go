// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"fmt"
	"time"
)

const (
	// DefaultMaxOutputBytes caps each captured stream of a single child.
	DefaultMaxOutputBytes int64 = 8 * 1024 * 1024
	// DefaultKillGrace is how long a child may run after the termination signal before it is killed.
	DefaultKillGrace = 5 * time.Second
)

// ShellMode selects how a command line is turned into a process.
type ShellMode int

const (
	// ShellAuto runs the command line through the platform shell: /bin/sh -c on Unix, cmd.exe /C on Windows.
	ShellAuto ShellMode = iota
	// ShellNone splits the command line into words and executes the first word directly.
	ShellNone
)

// String implements the Stringer interface for ShellMode.
func (m ShellMode) String() string {
	switch m {
	case ShellAuto:
		return "auto"
	case ShellNone:
		return "none"
	default:
		return "unknown"
	}
}

// ParseShellMode parses "auto" (or "") and "none".
func ParseShellMode(s string) (ShellMode, error) {
	switch s {
	case "", "auto":
		return ShellAuto, nil
	case "none":
		return ShellNone, nil
	default:
		return ShellAuto, fmt.Errorf("unknown shell mode %q", s)
	}
}

// Policy controls how the Runner executes each descriptor.
type Policy struct {
	Shell          ShellMode         // How command text becomes a process
	ShellPath      string            // Interpreter override for ShellAuto; empty means the platform default
	CaptureStdErr  bool              // Capture stderr instead of discarding it
	Timeout        time.Duration     // Per-command deadline; zero means none
	KillGrace      time.Duration     // Delay between termination signal and kill; zero means DefaultKillGrace
	MaxOutputBytes int64             // Cap per captured stream; zero means DefaultMaxOutputBytes
	Dir            string            // Working directory for every child
	Env            map[string]string // Added to the inherited environment
}

// DefaultPolicy returns the policy used when none is given: platform shell,
// stderr discarded, no timeout.
func DefaultPolicy() Policy {
	return Policy{
		Shell:          ShellAuto,
		KillGrace:      DefaultKillGrace,
		MaxOutputBytes: DefaultMaxOutputBytes,
	}
}

func (p Policy) withDefaults() Policy {
	if p.KillGrace <= 0 {
		p.KillGrace = DefaultKillGrace
	}

	if p.MaxOutputBytes <= 0 {
		p.MaxOutputBytes = DefaultMaxOutputBytes
	}

	return p
}
