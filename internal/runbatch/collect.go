// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// ErrResultMissing is returned when a batch does not yield exactly one result per descriptor.
var ErrResultMissing = errors.New("result missing for submitted descriptor")

// collect reads ch until it is closed and positions every result by its index.
// Exactly n results with distinct indexes in [0, n) are expected.
func collect(ch <-chan *Result, n int) (Results, error) {
	var merr *multierror.Error

	out := make(Results, n)

	for r := range ch {
		switch {
		case r == nil:
			merr = multierror.Append(merr, fmt.Errorf("%w: nil result", ErrResultMissing))
		case r.Index < 0 || r.Index >= n:
			merr = multierror.Append(merr, fmt.Errorf("%w: index %d out of range [0, %d)", ErrResultMissing, r.Index, n))
		case out[r.Index] != nil:
			merr = multierror.Append(merr, fmt.Errorf("%w: duplicate result for index %d", ErrResultMissing, r.Index))
		default:
			out[r.Index] = r
		}
	}

	for i, r := range out {
		if r == nil {
			merr = multierror.Append(merr, fmt.Errorf("%w: index %d", ErrResultMissing, i))
		}
	}

	if err := merr.ErrorOrNil(); err != nil {
		return out, err
	}

	return out, nil
}
