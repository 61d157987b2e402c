// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package jobs implements the jobs subcommand, which validates a job file
// and lists the commands it expands to without running them.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/matt-FFFFFF/pdp/internal/jobfile"
	"github.com/matt-FFFFFF/pdp/internal/runbatch"
	"github.com/urfave/cli/v3"
)

const (
	fileArg                     = "file"
	configTimeoutFlag           = "config-timeout"
	configTimeoutSecondsDefault = 30
)

// ErrNoFile is returned when no job file argument was given.
var ErrNoFile = errors.New("please provide a job file")

// JobsCmd validates a job file and prints the commands it would run.
var JobsCmd = &cli.Command{
	Name:        "jobs",
	Usage:       "Validate a job file and list its commands",
	Description: "Expands the templates of a job file and prints every command without running it.",
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      fileArg,
			UsageText: "FILE|URL",
		},
	},
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  configTimeoutFlag,
			Usage: "Set the maximum time in seconds to wait for the job file to be fetched.",
			Value: configTimeoutSecondsDefault,
		},
	},
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	url := cmd.StringArg(fileArg)
	if url == "" {
		return ErrNoFile
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(cmd.Int(configTimeoutFlag))*time.Second)
	defer cancel()

	def, err := jobfile.LoadURL(ctx, url)
	if err != nil {
		return err
	}

	return describe(cmd.Root().Writer, def)
}

func describe(w io.Writer, def *jobfile.Definition) error {
	p := def.Policy(runbatch.DefaultPolicy())
	commands := def.Descriptors()

	shell := p.Shell.String()
	if p.ShellPath != "" {
		shell = p.ShellPath
	}

	timeout := "none"
	if p.Timeout > 0 {
		timeout = p.Timeout.String()
	}

	workers := "auto"
	if def.Workers > 0 {
		workers = fmt.Sprint(def.Workers)
	}

	var err error

	printf := func(format string, args ...any) {
		if err != nil {
			return
		}

		_, err = fmt.Fprintf(w, format, args...)
	}

	printf("Job file: %s\n", def.Name)

	if def.Description != "" {
		printf("Description: %s\n", def.Description)
	}

	printf("Workers: %s\n", workers)
	printf("Shell: %s\n", shell)
	printf("Timeout: %s\n", timeout)
	printf("Capture stderr: %t\n", p.CaptureStdErr)

	if dir := def.OutputDir(); dir != "" {
		printf("Output directory: %s (force: %t)\n", dir, def.Force)
	}

	printf("Commands (%d):\n", len(commands))

	for i, d := range commands {
		printf("  [%d] %s\n", i, d.Label())

		if d.Label() != d.Text() {
			printf("      %s\n", d.Text())
		}
	}

	return err
}
