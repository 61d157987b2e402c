// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"context"
	"os"

	"github.com/matt-FFFFFF/pdp/internal/ctxlog"
)

// Watch reads sigCh until it is closed or ctx is done.
// The first signal calls cancel. A repeated signal of the same type calls force and returns.
func Watch(ctx context.Context, sigCh <-chan os.Signal, cancel context.CancelFunc, force func()) {
	seen := make(map[os.Signal]struct{})

	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-sigCh:
			if !ok {
				return
			}

			if _, dup := seen[sig]; dup {
				ctxlog.Warn(ctx, "watchdog", "detail", "received second signal of type, forcing exit", "signal", sig.String())

				if force != nil {
					force()
				}

				return
			}

			seen[sig] = struct{}{}

			ctxlog.Warn(ctx, "watchdog", "detail", "received signal, cancelling batch", "signal", sig.String())
			cancel()
		}
	}
}
