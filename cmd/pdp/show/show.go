// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package show implements the show subcommand.
package show

import (
	"context"
	"errors"

	"github.com/matt-FFFFFF/pdp/internal/runbatch"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
)

const (
	fileArg                  = "file"
	outputStdOutFlag         = "output-stdout"
	noOutputStdErrFlag       = "no-output-stderr"
	outputSuccessDetailsFlag = "output-success-details"
)

var (
	// ErrReadFile is returned when the file cannot be read.
	ErrReadFile = errors.New("failed to read file")
	// ErrWriteResults is returned when the results cannot be written to stdout.
	ErrWriteResults = errors.New("failed to write results to stdout")
	// ErrNoFile is returned when no file argument was given.
	ErrNoFile = errors.New("please provide a results file")
)

// FsFactory is a function that returns an afero filesystem.
var FsFactory = func() afero.Fs {
	return afero.NewOsFs()
}

// ShowCmd is the command that shows results saved with 'pdp run --out'.
var ShowCmd = &cli.Command{
	Name:        "show",
	Usage:       "Show previously saved results",
	Description: "Show results saved with 'pdp run --out FILE'.",
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      fileArg,
			UsageText: "FILE",
		},
	},
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    outputSuccessDetailsFlag,
			Aliases: []string{"success"},
			Usage:   "Include details of successful commands in the output",
		},
		&cli.BoolFlag{
			Name:    noOutputStdErrFlag,
			Aliases: []string{"no-stderr"},
			Usage:   "Exclude stderr output from the results",
		},
		&cli.BoolFlag{
			Name:    outputStdOutFlag,
			Aliases: []string{"stdout"},
			Usage:   "Include stdout output in the results",
		},
	},
	Action: func(_ context.Context, cmd *cli.Command) error {
		name := cmd.StringArg(fileArg)
		if name == "" {
			return ErrNoFile
		}

		file, err := FsFactory().Open(name)
		if err != nil {
			return errors.Join(ErrReadFile, err)
		}
		defer file.Close() // nolint:errcheck

		results, err := runbatch.ReadYAML(file)
		if err != nil {
			return err
		}

		opts := runbatch.DefaultOutputOptions()
		opts.IncludeStdErr = !cmd.Bool(noOutputStdErrFlag)
		opts.IncludeStdOut = cmd.Bool(outputStdOutFlag)
		opts.ShowSuccessDetails = cmd.Bool(outputSuccessDetailsFlag)

		if err := results.WriteWithOptions(cmd.Root().Writer, opts); err != nil {
			return errors.Join(ErrWriteResults, err)
		}

		return nil
	},
}
