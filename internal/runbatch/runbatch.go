// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBatchFailed matches every *BatchError with errors.Is.
var ErrBatchFailed = errors.New("batch has failed commands")

// BatchError summarises the failed results of a batch.
type BatchError struct {
	Total  int     // Number of descriptors in the batch
	Failed Results // Results that did not succeed, in submission order
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%d of %d commands failed", len(e.Failed), e.Total)

	for _, r := range e.Failed {
		sb.WriteString("\n  ")
		sb.WriteString(describeFailure(r))
	}

	return sb.String()
}

// Is makes errors.Is(err, ErrBatchFailed) true.
func (e *BatchError) Is(target error) bool {
	return target == ErrBatchFailed
}

// Unwrap returns the non-nil errors of the failed results.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))

	for _, r := range e.Failed {
		if r.Error != nil {
			errs = append(errs, r.Error)
		}
	}

	return errs
}

func describeFailure(r *Result) string {
	switch {
	case r == nil:
		return "<nil result>"
	case r.Status == ResultStatusCompleted:
		return fmt.Sprintf("[%d] %s: exit code %d", r.Index, r.Label(), r.ExitCode)
	case r.Error != nil:
		return fmt.Sprintf("[%d] %s: %s: %s", r.Index, r.Label(), r.Status, r.Error.Error())
	default:
		return fmt.Sprintf("[%d] %s: %s", r.Index, r.Label(), r.Status)
	}
}
