// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"fmt"
	"io"
	"os"
	"slices"
	"time"
)

// ResultStatus is the terminal state of a descriptor.
type ResultStatus int

const (
	// ResultStatusUnknown is set when the child was started but its fate could not be determined.
	ResultStatusUnknown ResultStatus = iota
	// ResultStatusCompleted means the child ran and exited. The exit code may be non-zero.
	ResultStatusCompleted
	// ResultStatusSpawnFailed means no process was started.
	ResultStatusSpawnFailed
	// ResultStatusTimedOut means the child was terminated because a deadline passed.
	ResultStatusTimedOut
	// ResultStatusCancelled means the batch was cancelled before or while the child ran.
	ResultStatusCancelled
)

var resultStatusNames = map[ResultStatus]string{
	ResultStatusUnknown:     "unknown",
	ResultStatusCompleted:   "completed",
	ResultStatusSpawnFailed: "spawn-failed",
	ResultStatusTimedOut:    "timed-out",
	ResultStatusCancelled:   "cancelled",
}

// String implements the Stringer interface for ResultStatus.
func (s ResultStatus) String() string {
	if n, ok := resultStatusNames[s]; ok {
		return n
	}

	return resultStatusNames[ResultStatusUnknown]
}

// ParseResultStatus is the inverse of String.
func ParseResultStatus(s string) (ResultStatus, error) {
	for k, v := range resultStatusNames {
		if v == s {
			return k, nil
		}
	}

	return ResultStatusUnknown, fmt.Errorf("unknown result status %q", s)
}

// Result is the outcome of running one descriptor.
type Result struct {
	Descriptor Descriptor    // The descriptor that produced this result
	Index      int           // Submission index within the batch
	ExitCode   int           // Exit code of the child, -1 if it never exited normally
	StdOut     []byte        // Captured standard output
	StdErr     []byte        // Captured standard error, nil unless capture was enabled
	Error      error         // Spawn, deadline, cancellation or capture error. Never set for a non-zero exit alone
	Status     ResultStatus  // Terminal state
	Duration   time.Duration // Wall-clock time from spawn to exit
}

// Succeeded reports whether the child ran to completion with exit code zero.
func (r *Result) Succeeded() bool {
	return r != nil && r.Status == ResultStatusCompleted && r.ExitCode == 0
}

// Label returns the display label of the descriptor.
func (r *Result) Label() string {
	return r.Descriptor.Label()
}

// Results is a slice of Result pointers ordered by submission index.
type Results []*Result

// HasError reports whether any result did not succeed.
func (r Results) HasError() bool {
	return slices.ContainsFunc(r, func(v *Result) bool {
		return !v.Succeeded()
	})
}

// Failed returns the results that did not succeed, in submission order.
func (r Results) Failed() Results {
	return r.filter(func(v *Result) bool {
		return !v.Succeeded()
	})
}

// SpawnFailures returns the results whose process could not be started.
func (r Results) SpawnFailures() Results {
	return r.filter(func(v *Result) bool {
		return v != nil && v.Status == ResultStatusSpawnFailed
	})
}

// Err returns a *BatchError describing every failed result, or nil.
func (r Results) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}

	return &BatchError{
		Total:  len(r),
		Failed: failed,
	}
}

// Print outputs the results to stdout with default options.
func (r Results) Print() error {
	return writeTextResults(os.Stdout, r, nil)
}

// PrintWithOptions outputs the results to stdout with the specified options.
func (r Results) PrintWithOptions(options *OutputOptions) error {
	return writeTextResults(os.Stdout, r, options)
}

// Write outputs the results to the specified writer with default options.
func (r Results) Write(w io.Writer) error {
	return writeTextResults(w, r, nil)
}

// WriteWithOptions outputs the results to the specified writer with the specified options.
func (r Results) WriteWithOptions(w io.Writer, options *OutputOptions) error {
	return writeTextResults(w, r, options)
}

func (r Results) filter(keep func(*Result) bool) Results {
	out := make(Results, 0, len(r))

	for _, v := range r {
		if keep(v) {
			out = append(out, v)
		}
	}

	return out
}
