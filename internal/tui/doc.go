// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package tui provides a real-time Terminal User Interface (TUI) for watching a
// batch of commands run. It shows one row per command with a status indicator
// and elapsed time, a spinner for running commands and an overall progress bar.
//
// The TUI is fed by progress events, so it works with any batch that accepts
// a progress.Reporter.
package tui
