// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/pdp/internal/progress"
	"github.com/matt-FFFFFF/pdp/internal/runbatch"
)

// BatchFunc runs a batch, sending progress to reporter.
type BatchFunc func(ctx context.Context, reporter progress.Reporter) (runbatch.Results, error)

// Runner manages the TUI application and progress event integration.
type Runner struct {
	model    *Model
	program  *tea.Program
	reporter *TUIReporter
	mutex    sync.Mutex
}

// TUIReporter implements progress.Reporter and forwards events to the TUI.
type TUIReporter struct {
	program *tea.Program
	closed  bool
	mutex   sync.RWMutex
}

// NewTUIReporter creates a new TUI progress reporter.
func NewTUIReporter(program *tea.Program) *TUIReporter {
	return &TUIReporter{
		program: program,
	}
}

// Report implements progress.Reporter.
func (tr *TUIReporter) Report(event progress.Event) {
	tr.mutex.RLock()
	defer tr.mutex.RUnlock()

	if tr.closed || tr.program == nil {
		return
	}

	tr.program.Send(ProgressEventMsg{Event: event})
}

// Close implements progress.Reporter.
func (tr *TUIReporter) Close() {
	tr.mutex.Lock()
	defer tr.mutex.Unlock()

	tr.closed = true
}

// RunnerOption configures a Runner.
type RunnerOption func(r *runnerConfig)

type runnerConfig struct {
	programOptions []tea.ProgramOption
	autoQuit       bool
}

// WithProgramOptions replaces the default bubbletea options (alternate screen).
func WithProgramOptions(opts ...tea.ProgramOption) RunnerOption {
	return func(c *runnerConfig) {
		c.programOptions = opts
	}
}

// WithAutoQuit closes the TUI as soon as the batch finishes instead of waiting for 'q'.
func WithAutoQuit() RunnerOption {
	return func(c *runnerConfig) {
		c.autoQuit = true
	}
}

// NewRunner creates a TUI runner showing one row per label.
func NewRunner(title string, labels []string, opts ...RunnerOption) *Runner {
	cfg := &runnerConfig{
		programOptions: []tea.ProgramOption{tea.WithAltScreen()},
	}

	for _, opt := range opts {
		opt(cfg)
	}

	model := NewModel(title, labels)
	model.autoQuit = cfg.autoQuit

	program := tea.NewProgram(model, cfg.programOptions...)

	return &Runner{
		model:    model,
		program:  program,
		reporter: NewTUIReporter(program),
	}
}

// Reporter returns the progress reporter for this TUI runner.
func (r *Runner) Reporter() progress.Reporter {
	return r.reporter
}

// Run starts the TUI and executes fn with progress reporting.
// Quitting the TUI before the batch has finished cancels the batch.
func (r *Runner) Run(ctx context.Context, fn BatchFunc) (runbatch.Results, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type batchOutcome struct {
		results runbatch.Results
		err     error
	}

	resultChan := make(chan batchOutcome, 1)

	go func() {
		res, err := fn(runCtx, r.reporter)
		resultChan <- batchOutcome{results: res, err: err}
	}()

	tuiDone := make(chan error, 1)

	go func() {
		_, err := r.program.Run()
		tuiDone <- err
	}()

	var (
		outcome batchOutcome
		tuiErr  error
	)

	select {
	case outcome = <-resultChan:
		// Keep the final state on screen until the user quits.
		r.program.Send(BatchCompletedMsg{Results: outcome.results})
		tuiErr = <-tuiDone

	case tuiErr = <-tuiDone:
		cancel()

		outcome = <-resultChan

	case <-ctx.Done():
		r.program.Quit()

		outcome = <-resultChan
		tuiErr = <-tuiDone
	}

	r.reporter.Close()

	if outcome.err != nil {
		return outcome.results, outcome.err
	}

	return outcome.results, tuiErr
}
