// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package runbatch runs a batch of shell command lines as child processes across a
// bounded pool of workers and returns one result per command, in submission order.
//
// A non-zero exit status is reported in the result, never as an error. Only
// malformed input fails a whole batch, and it does so before anything is spawned.
// A command that cannot be started, times out or is cancelled still occupies its
// own slot in the returned Results, so callers can always zip results against the
// commands they submitted.
package runbatch
