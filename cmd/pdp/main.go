// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main contains the pdp command-line interface (CLI).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/matt-FFFFFF/pdp"
	"github.com/matt-FFFFFF/pdp/cmd/pdp/jobs"
	"github.com/matt-FFFFFF/pdp/cmd/pdp/run"
	"github.com/matt-FFFFFF/pdp/cmd/pdp/show"
	"github.com/matt-FFFFFF/pdp/internal/ctxlog"
	"github.com/matt-FFFFFF/pdp/internal/signalbroker"
	"github.com/urfave/cli/v3"
)

// exitInterrupted is the conventional status for a process stopped by SIGINT.
const exitInterrupted = 130

// rootCmd is the root command for the CLI.
var rootCmd = &cli.Command{
	Commands: []*cli.Command{
		run.RunCmd,
		show.ShowCmd,
		jobs.JobsCmd,
	},
	Writer:    os.Stdout,
	ErrWriter: os.Stderr,
	Name:      "pdp",
	Description: `pdp runs the external tools of the diagnostic primer design pipeline
(gene prediction, primer design, primer classification and sequence search)
as a bounded pool of parallel child processes and reports one result per command.`,
	Usage:     "pdp run -f prodigal.yaml",
	Copyright: "Copyright (c) matt-FFFFFF 2025. All rights reserved.",
	Authors: []any{
		"Matt White (matt-FFFFFF)",
	},
	EnableShellCompletion: true,
	// Command lines often contain commas.
	DisableSliceFlagSeparator: true,
}

func main() {
	baseCtx := ctxlog.New(context.Background(), ctxlog.DefaultLogger)

	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	sigCh := signalbroker.New(ctx)
	defer signalbroker.Stop(sigCh)

	// The watchdog outlives the run context so that a second signal can still force an exit.
	go signalbroker.Watch(baseCtx, sigCh, cancel, func() {
		os.Exit(exitInterrupted)
	})

	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", pdp.Version, pdp.Commit)

	err := rootCmd.Run(ctx, os.Args) // Err is handled by cli framework

	if ctx.Err() != nil {
		ctxlog.Logger(ctx).Error("command terminated due to cancellation", "error", ctx.Err())
		os.Exit(1)
	}

	if err != nil {
		ctxlog.Logger(ctx).Error("command execution failed", "error", err)
		os.Exit(1)
	}

	ctxlog.Logger(ctx).Info("command completed successfully")
}
