// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package run implements the run subcommand.
package run

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/matt-FFFFFF/pdp/internal/ctxlog"
	"github.com/matt-FFFFFF/pdp/internal/jobfile"
	"github.com/matt-FFFFFF/pdp/internal/progress"
	"github.com/matt-FFFFFF/pdp/internal/runbatch"
	"github.com/matt-FFFFFF/pdp/internal/tui"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
)

const (
	fileFlag                    = "file"
	commandFlag                 = "command"
	commandsFromFlag            = "commands-from"
	workersFlag                 = "workers"
	verboseFlag                 = "verbose"
	logfileFlag                 = "logfile"
	captureStdErrFlag           = "capture-stderr"
	shellFlag                   = "shell"
	noShellFlag                 = "no-shell"
	timeoutFlag                 = "timeout"
	batchTimeoutFlag            = "batch-timeout"
	outFlag                     = "out"
	outputStdOutFlag            = "output-stdout"
	noOutputStdErrFlag          = "no-output-stderr"
	outputSuccessDetailsFlag    = "output-success-details"
	tuiFlag                     = "tui"
	configTimeoutFlag           = "config-timeout"
	outdirFlag                  = "outdir"
	forceFlag                   = "force"
	configTimeoutSecondsDefault = 30
	adHocBatchName              = "commands"
	cliExitStr                  = ""
	logFilePerm                 = 0o644
)

var (
	// ErrNoCommands is returned when neither a job file nor a command was given.
	ErrNoCommands = errors.New("no job file or command given")
	// ErrOpenLogFile is returned when the log file cannot be opened.
	ErrOpenLogFile = errors.New("failed to open log file")
	// ErrWriteResults is returned when the results file cannot be written.
	ErrWriteResults = errors.New("failed to write results file")
)

// FsFactory is a function that returns the filesystem used for the log and results files.
var FsFactory = func() afero.Fs {
	return afero.NewOsFs()
}

// RunCmd is the command that runs batches of external commands.
var RunCmd = newRunCmd()

func newRunCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run command lines in parallel and report one result per command",
		Description: `Run the commands from one or more job files, or given directly with --command,
on a bounded pool of workers. Every command runs in its own child process.

Job file URLs use Hashicorp's go-getter syntax, which allows for fetching files from various sources.
See https://github.com/hashicorp/go-getter.

Job files are run one after another, in the order given. Ad-hoc commands run last.
Output directories named with --outdir or output_directory are created before anything runs;
an existing one is refused unless --force or the job file's force is set.
The exit status is 1 if any command failed to start, exited non-zero, timed out or was cancelled.
`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    fileFlag,
				Aliases: []string{"f"},
				Usage: "URL of a YAML job file to run. " +
					"Supports Hashicorp's go-getter syntax. Specify multiple times to run multiple files.",
			},
			&cli.StringSliceFlag{
				Name:    commandFlag,
				Aliases: []string{"c"},
				Usage:   "Command line to run. Specify multiple times to run several commands in parallel.",
			},
			&cli.StringFlag{
				Name:      commandsFromFlag,
				Usage:     "File with one command line per line. Blank lines and lines starting with # are ignored.",
				TakesFile: true,
				OnlyOnce:  true,
			},
			&cli.IntFlag{
				Name:    workersFlag,
				Aliases: []string{"w"},
				Usage: "Maximum number of commands running at once. " +
					"Overrides the job file. Defaults to the number of CPU cores available.",
				Value: 0,
			},
			&cli.BoolFlag{
				Name:    verboseFlag,
				Aliases: []string{"v"},
				Usage:   "Log the command lines and progress at INFO level",
			},
			&cli.StringFlag{
				Name:      logfileFlag,
				Aliases:   []string{"l"},
				Usage:     "Also append log records at INFO level and above to this file",
				TakesFile: true,
				OnlyOnce:  true,
			},
			&cli.BoolFlag{
				Name:  captureStdErrFlag,
				Usage: "Capture stderr of every command instead of discarding it",
			},
			&cli.StringFlag{
				Name:     shellFlag,
				Usage:    "Interpreter used to run command lines instead of the platform shell",
				OnlyOnce: true,
			},
			&cli.BoolFlag{
				Name:  noShellFlag,
				Usage: "Split command lines into words and run them without a shell",
			},
			&cli.DurationFlag{
				Name:  timeoutFlag,
				Usage: "Terminate any command running longer than this, e.g. 30m. Zero means no limit.",
			},
			&cli.DurationFlag{
				Name:  batchTimeoutFlag,
				Usage: "Cancel everything still queued or running after this long. Zero means no limit.",
			},
			&cli.StringFlag{
				Name:      outFlag,
				Usage:     "Save the results as YAML to this file, for use with 'pdp show'",
				TakesFile: true,
				OnlyOnce:  true,
			},
			&cli.BoolFlag{
				Name:        outputSuccessDetailsFlag,
				Aliases:     []string{"success"},
				Usage:       "Include details of successful commands in the output",
				DefaultText: "false",
				OnlyOnce:    true,
			},
			&cli.BoolFlag{
				Name:        noOutputStdErrFlag,
				Aliases:     []string{"no-stderr"},
				Usage:       "Exclude stderr output from the results",
				DefaultText: "false",
				OnlyOnce:    true,
			},
			&cli.BoolFlag{
				Name:        outputStdOutFlag,
				Aliases:     []string{"stdout"},
				Usage:       "Include stdout output in the results",
				DefaultText: "false",
				OnlyOnce:    true,
			},
			&cli.BoolFlag{
				Name:    tuiFlag,
				Aliases: []string{"t", "interactive"},
				Usage:   "Run with interactive Terminal User Interface (TUI) showing real-time progress",
			},
			&cli.StringFlag{
				Name:      outdirFlag,
				Usage:     "Create this output directory before running. Overrides output_directory in job files.",
				TakesFile: true,
				OnlyOnce:  true,
			},
			&cli.BoolFlag{
				Name:  forceFlag,
				Usage: "Write into an output directory that already exists",
			},
			&cli.IntFlag{
				Name: configTimeoutFlag,
				Usage: "Set the maximum time in seconds to wait for job files to be fetched. " +
					"Defaults to 30 seconds.",
				Value: configTimeoutSecondsDefault,
			},
		},
		Action: actionFunc,
	}
}

// batch is one unit of sequential execution: a job file or the ad-hoc commands.
type batch struct {
	name        string
	descriptors []runbatch.Descriptor
	policy      runbatch.Policy
	workers     int
	outdir      string
	force       bool
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	ctxlog.SetVerbose(cmd.Bool(verboseFlag))

	if path := cmd.String(logfileFlag); path != "" {
		f, err := FsFactory().OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, logFilePerm)
		if err != nil {
			ctxlog.Error(ctx, "cannot open log file", "path", path, "error", err)
			return cli.Exit(errors.Join(ErrOpenLogFile, err).Error(), 1)
		}

		defer f.Close() //nolint:errcheck

		ctx = ctxlog.New(ctx, ctxlog.WithLogFile(f))
	}

	logger := ctxlog.Logger(ctx).With("command", cmd.Name)
	logger.Debug("running run command")

	base, err := basePolicy(cmd)
	if err != nil {
		logger.Error(err.Error())
		return cli.Exit(cliExitStr, 1)
	}

	batches, err := loadBatches(ctx, cmd, base)
	if err != nil {
		logger.Error(err.Error())
		return cli.Exit(cliExitStr, 1)
	}

	if err := createOutputDirectories(ctx, batches); err != nil {
		logger.Error(err.Error())
		return cli.Exit(cliExitStr, 1)
	}

	if d := cmd.Duration(batchTimeoutFlag); d > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	var all runbatch.Results

	for _, b := range batches {
		logCommandLines(ctx, b)

		res, err := runOne(ctx, cmd, b)
		if err != nil {
			logger.Error(fmt.Sprintf("batch %s failed: %s", b.name, err.Error()))
			return cli.Exit(cliExitStr, 1)
		}

		all = append(all, res...)
	}

	if outFileName := cmd.String(outFlag); outFileName != "" {
		if err := writeResultsFile(outFileName, all); err != nil {
			logger.Error(err.Error())
			return cli.Exit(cliExitStr, 1)
		}

		logger.Info(fmt.Sprintf("Results written to %s", outFileName))
	}

	opts := runbatch.DefaultOutputOptions()
	opts.IncludeStdErr = !cmd.Bool(noOutputStdErrFlag)
	opts.IncludeStdOut = cmd.Bool(outputStdOutFlag)
	opts.ShowSuccessDetails = cmd.Bool(outputSuccessDetailsFlag)

	if err := all.WriteWithOptions(cmd.Root().Writer, opts); err != nil {
		logger.Error(fmt.Sprintf("Failed to write results: %s", err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	if err := all.Err(); err != nil {
		logger.Error("Some commands failed. See above for details.", "failed", len(all.Failed()), "total", len(all))
		return cli.Exit(cliExitStr, 1)
	}

	return nil
}

func basePolicy(cmd *cli.Command) (runbatch.Policy, error) {
	p := runbatch.DefaultPolicy()
	p.CaptureStdErr = cmd.Bool(captureStdErrFlag)
	p.Timeout = cmd.Duration(timeoutFlag)

	if p.Timeout < 0 {
		return p, fmt.Errorf("--%s must not be negative", timeoutFlag)
	}

	if cmd.Bool(noShellFlag) && cmd.String(shellFlag) != "" {
		return p, fmt.Errorf("--%s and --%s are mutually exclusive", noShellFlag, shellFlag)
	}

	if cmd.Bool(noShellFlag) {
		p.Shell = runbatch.ShellNone
	}

	p.ShellPath = cmd.String(shellFlag)

	return p, nil
}

// loadBatches fetches every job file, then adds the ad-hoc commands as a final batch.
// CLI settings override job file settings.
func loadBatches(ctx context.Context, cmd *cli.Command, base runbatch.Policy) ([]batch, error) {
	configCtx, configCancel := context.WithTimeout(ctx, time.Duration(cmd.Int(configTimeoutFlag))*time.Second)
	defer configCancel()

	var batches []batch

	for i, u := range cmd.StringSlice(fileFlag) {
		if u == "" {
			return nil, fmt.Errorf("the job file URL at index %d is empty", i)
		}

		def, err := jobfile.LoadURL(configCtx, u)
		if err != nil {
			return nil, err
		}

		name := def.Name
		if name == "" {
			name = u
		}

		p := def.Policy(base)
		cliOverrides(cmd, &p)

		batches = append(batches, batch{
			name:        name,
			descriptors: def.Descriptors(),
			policy:      p,
			workers:     def.Workers,
			outdir:      def.OutputDir(),
			force:       def.Force,
		})
	}

	commands := cmd.StringSlice(commandFlag)

	if path := cmd.String(commandsFromFlag); path != "" {
		fromFile, err := jobfile.ReadCommandList(path)
		if err != nil {
			return nil, err
		}

		commands = append(commands, fromFile...)
	}

	if len(commands) > 0 {
		ds, err := runbatch.NewDescriptors(commands)
		if err != nil {
			return nil, err
		}

		batches = append(batches, batch{
			name:        adHocBatchName,
			descriptors: ds,
			policy:      base,
		})
	}

	if len(batches) == 0 {
		return nil, fmt.Errorf("%w: use --%s, --%s or --%s", ErrNoCommands, fileFlag, commandFlag, commandsFromFlag)
	}

	for i := range batches {
		if w := cmd.Int(workersFlag); w > 0 {
			batches[i].workers = w
		}

		if o := cmd.String(outdirFlag); o != "" {
			batches[i].outdir = o
		}

		batches[i].force = batches[i].force || cmd.Bool(forceFlag)
	}

	return batches, nil
}

// createOutputDirectories creates every batch's output directory before anything runs.
// A directory shared by several batches is created once.
func createOutputDirectories(ctx context.Context, batches []batch) error {
	created := make(map[string]struct{})

	for _, b := range batches {
		if b.outdir == "" {
			continue
		}

		dir := filepath.Clean(b.outdir)
		if _, ok := created[dir]; ok {
			continue
		}

		if err := jobfile.CreateOutputDirectory(ctx, dir, b.force); err != nil {
			return fmt.Errorf("batch %s: %w", b.name, err)
		}

		created[dir] = struct{}{}
	}

	return nil
}

// cliOverrides applies flags that were set explicitly on top of a job file policy.
func cliOverrides(cmd *cli.Command, p *runbatch.Policy) {
	if cmd.IsSet(captureStdErrFlag) {
		p.CaptureStdErr = cmd.Bool(captureStdErrFlag)
	}

	if cmd.IsSet(timeoutFlag) {
		p.Timeout = cmd.Duration(timeoutFlag)
	}

	if cmd.Bool(noShellFlag) {
		p.Shell = runbatch.ShellNone
	}

	if s := cmd.String(shellFlag); s != "" {
		p.Shell = runbatch.ShellAuto
		p.ShellPath = s
	}
}

func runOne(ctx context.Context, cmd *cli.Command, b batch) (runbatch.Results, error) {
	opts := []runbatch.Option{runbatch.WithVerbose(cmd.Bool(verboseFlag))}
	runner := runbatch.NewRunner(b.policy)

	if !cmd.Bool(tuiFlag) {
		if cmd.Bool(verboseFlag) {
			reporter := progress.NewChannelReporter(len(b.descriptors) * 3) //nolint:mnd
			reporter.Listen(progressLogger(ctx, b.name))

			defer reporter.Close()

			opts = append(opts, runbatch.WithReporter(reporter))
		}

		return runbatch.NewPool(b.workers, runner, opts...).RunBatch(ctx, b.descriptors)
	}

	labels := make([]string, len(b.descriptors))
	for i, d := range b.descriptors {
		labels[i] = d.Label()
	}

	t := tui.NewRunner(b.name, labels)

	return t.Run(ctx, func(ctx context.Context, reporter progress.Reporter) (runbatch.Results, error) {
		return runbatch.NewPool(b.workers, runner, append(opts, runbatch.WithReporter(reporter))...).RunBatch(ctx, b.descriptors)
	})
}

// progressLogger logs every terminal event as it happens.
func progressLogger(ctx context.Context, name string) progress.Listener {
	logger := ctxlog.Logger(ctx).With("batch", name)

	return progress.ListenerFunc(func(e progress.Event) {
		if !e.Type.Terminal() {
			return
		}

		attrs := []any{
			"index", e.Index,
			"label", e.Label,
			"status", e.Type.String(),
			"exitCode", e.Data.ExitCode,
			"duration", e.Data.Duration.String(),
		}

		if e.Data.Error != nil {
			attrs = append(attrs, "error", e.Data.Error.Error())
		}

		logger.Info(fmt.Sprintf("[%d/%d] %s", e.Index+1, e.Total, e.Message), attrs...)
	})
}

// logCommandLines logs the command lines of a batch before it runs.
func logCommandLines(ctx context.Context, b batch) {
	lines := make([]any, len(b.descriptors))
	for i, d := range b.descriptors {
		lines[i] = d.Text()
	}

	ctxlog.Info(ctx, "command lines",
		"batch", b.name,
		"workers", b.workers,
		"shell", b.policy.Shell.String(),
		"commands", lines,
	)
}

func writeResultsFile(name string, results runbatch.Results) error {
	f, err := FsFactory().Create(name)
	if err != nil {
		return errors.Join(ErrWriteResults, err)
	}

	defer f.Close() //nolint:errcheck

	if err := results.WriteYAML(f); err != nil {
		return errors.Join(ErrWriteResults, err)
	}

	return nil
}
