// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package progress carries real-time lifecycle events from the worker pool to
// whoever is watching: the TUI, a verbose console listener, or a test.
package progress
