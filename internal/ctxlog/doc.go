// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package ctxlog carries a *slog.Logger in a context.Context.
//
// The default logger writes to stderr through PrettyHandler. The level is held
// in LevelVar and seeded from the PDP_LOG_LEVEL environment variable, which
// accepts DEBUG, INFO, WARN or ERROR. Anything else means WARN.
package ctxlog
