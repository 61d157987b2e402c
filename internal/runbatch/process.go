// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/matt-FFFFFF/pdp/internal/ctxlog"
)

var (
	// ErrSpawn is returned when the child process could not be started.
	ErrSpawn = errors.New("could not start process")
	// ErrTimeoutExceeded is returned when the child was terminated because a deadline passed.
	ErrTimeoutExceeded = errors.New("timeout exceeded")
	// ErrCancelled is returned when the child was terminated or never started because the batch was cancelled.
	ErrCancelled = errors.New("cancelled")
	// ErrBufferOverflow is returned when a captured stream exceeded the output cap.
	// The exit status of the result is unaffected.
	ErrBufferOverflow = errors.New("output exceeds max size")
	// ErrFailedToReadBuffer is returned when the operating system pipe could not be read.
	ErrFailedToReadBuffer = errors.New("failed to read buffer")
	// ErrFailedToCreatePipe is returned when the operating system pipe could not be created.
	ErrFailedToCreatePipe = errors.New("failed to create pipe")
	// ErrWait is returned when waiting for the child failed.
	ErrWait = errors.New("failed to wait for process")
)

// Runner spawns one child process per descriptor under a fixed Policy.
// A Runner holds no per-call state and is safe for concurrent use.
type Runner struct {
	policy Policy
}

// NewRunner creates a Runner. Zero limits in p are replaced by their defaults.
func NewRunner(p Policy) *Runner {
	return &Runner{policy: p.withDefaults()}
}

// Policy returns the effective policy.
func (r *Runner) Policy() Policy {
	return r.policy
}

// capture is what a drainer read from one stream.
type capture struct {
	data     []byte
	overflow bool
	err      error
}

// Run executes d and blocks until the child has exited and its output has been drained.
// It never returns nil.
func (r *Runner) Run(ctx context.Context, index int, d Descriptor) *Result {
	logger := ctxlog.Logger(ctx).With("index", index, "label", d.Label())

	res := &Result{
		Descriptor: d,
		Index:      index,
		ExitCode:   -1,
	}

	if err := ctx.Err(); err != nil {
		return abandoned(res, err)
	}

	path, argv, err := r.policy.argv(d.Text())
	if err != nil {
		return spawnFailed(res, err)
	}

	logger.Debug("command info", "path", path, "args", argv, "cwd", r.policy.Dir)

	runCtx := ctx

	if r.policy.Timeout > 0 {
		var cancel context.CancelFunc

		runCtx, cancel = context.WithTimeout(ctx, r.policy.Timeout)
		defer cancel()
	}

	stdin, err := os.Open(os.DevNull)
	if err != nil {
		return spawnFailed(res, err)
	}
	defer stdin.Close() //nolint:errcheck

	rOut, wOut, err := os.Pipe()
	if err != nil {
		return spawnFailed(res, errors.Join(ErrFailedToCreatePipe, err))
	}

	var rErr, wErr *os.File

	if r.policy.CaptureStdErr {
		rErr, wErr, err = os.Pipe()
	} else {
		wErr, err = os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	}

	if err != nil {
		_ = rOut.Close()
		_ = wOut.Close()

		return spawnFailed(res, errors.Join(ErrFailedToCreatePipe, err))
	}

	startTime := time.Now()

	ps, err := os.StartProcess(path, argv, &os.ProcAttr{
		Dir:   r.policy.Dir,
		Env:   r.environ(),
		Files: []*os.File{stdin, wOut, wErr},
		Sys:   sysProcAttr(),
	})

	// The child holds its own copies now; the drainers see EOF once it exits.
	_ = wOut.Close()
	_ = wErr.Close()

	if err != nil {
		_ = rOut.Close()

		if rErr != nil {
			_ = rErr.Close()
		}

		logger.Debug("process failed to start", "error", err)

		return spawnFailed(res, err)
	}

	logger.Debug("process started", "pid", ps.Pid)

	var (
		drainers       sync.WaitGroup
		stdout, stderr capture
	)

	drainers.Add(1)

	go func() {
		defer drainers.Done()

		stdout = drainUpToMax(rOut, r.policy.MaxOutputBytes)
	}()

	if rErr != nil {
		drainers.Add(1)

		go func() {
			defer drainers.Done()

			stderr = drainUpToMax(rErr, r.policy.MaxOutputBytes)
		}()
	}

	done := make(chan struct{})
	stop := &stopState{}
	watchdogDone := make(chan struct{})

	go func() {
		defer close(watchdogDone)
		r.watch(runCtx, logger, ps, done, stop)
	}()

	state, waitErr := ps.Wait()
	res.Duration = time.Since(startTime)

	stopErr := stop.exited()

	close(done)
	<-watchdogDone

	// The leader is gone; anything left in its group was started by it and must not outlive the run.
	if err := kill(ps); err != nil && !errors.Is(err, os.ErrProcessDone) {
		logger.Debug("failed to kill process group", "error", err)
	}

	drainers.Wait()

	_ = rOut.Close()

	if rErr != nil {
		_ = rErr.Close()
	}

	res.StdOut = stdout.data
	res.StdErr = stderr.data

	switch {
	case stopErr != nil:
		res.Error = stopErr
		res.Status = ResultStatusCancelled

		if errors.Is(stopErr, ErrTimeoutExceeded) {
			res.Status = ResultStatusTimedOut
		}
	case waitErr != nil:
		res.Error = errors.Join(ErrWait, waitErr)
		res.Status = ResultStatusUnknown
	default:
		res.ExitCode = state.ExitCode()
		res.Status = ResultStatusCompleted
	}

	for _, c := range []capture{stdout, stderr} {
		if c.err != nil {
			res.Error = errors.Join(res.Error, c.err)
		}

		if c.overflow {
			res.Error = errors.Join(res.Error, fmt.Errorf("%w of %d bytes", ErrBufferOverflow, r.policy.MaxOutputBytes))
		}
	}

	logger.Debug("process finished",
		"status", res.Status.String(),
		"exitCode", res.ExitCode,
		"duration", res.Duration,
		"stdoutBytes", len(res.StdOut),
		"stderrBytes", len(res.StdErr),
	)

	return res
}

// stopState decides whether the child was stopped by the watchdog or exited on its own.
// Whichever of stop and exited is called first wins.
type stopState struct {
	mu     sync.Mutex
	done   bool
	reason error
}

// stop records reason unless the child has already been reaped. It reports whether the caller should signal the child.
func (s *stopState) stop(reason error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return false
	}

	s.reason = reason

	return true
}

// exited marks the child as reaped and returns the stop reason, nil when the child exited on its own.
func (s *stopState) exited() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.done = true

	return s.reason
}

// watch terminates the process group when ctx ends before the child is reaped,
// escalating to a kill after the grace period.
func (r *Runner) watch(ctx context.Context, logger *slog.Logger, ps *os.Process, done <-chan struct{}, stop *stopState) {
	select {
	case <-done:
		return
	case <-ctx.Done():
	}

	stopErr := errors.Join(ErrCancelled, ctx.Err())
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		stopErr = errors.Join(ErrTimeoutExceeded, ctx.Err())
	}

	if !stop.stop(stopErr) {
		return
	}

	logger.Info("terminating process", "pid", ps.Pid, "reason", stopErr.Error())

	if err := terminate(ps); err != nil && !errors.Is(err, os.ErrProcessDone) {
		logger.Debug("failed to signal process group", "error", err)
	}

	timer := time.NewTimer(r.policy.KillGrace)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		logger.Info("process still running after grace period, killing", "pid", ps.Pid)

		if err := kill(ps); err != nil && !errors.Is(err, os.ErrProcessDone) {
			logger.Debug("failed to kill process group", "error", err)
		}
	}
}

func (r *Runner) environ() []string {
	env := os.Environ()

	for _, k := range slices.Sorted(maps.Keys(r.policy.Env)) {
		env = append(env, k+"="+r.policy.Env[k])
	}

	return env
}

// drainUpToMax reads r to EOF, keeping at most limit bytes.
func drainUpToMax(r io.Reader, limit int64) capture {
	var buf bytes.Buffer

	n, err := io.CopyN(&buf, r, limit)

	c := capture{data: buf.Bytes()}

	if err == nil && n == limit {
		var extra int64

		extra, err = io.Copy(io.Discard, r)
		c.overflow = extra > 0
	}

	if err != nil && !errors.Is(err, io.EOF) {
		c.err = errors.Join(ErrFailedToReadBuffer, err)
	}

	return c
}

func spawnFailed(res *Result, err error) *Result {
	res.Status = ResultStatusSpawnFailed
	res.ExitCode = -1
	res.Error = errors.Join(ErrSpawn, err)

	return res
}

// abandoned marks a result whose descriptor was never spawned because ctx had already ended.
func abandoned(res *Result, cause error) *Result {
	res.Status = ResultStatusCancelled
	res.ExitCode = -1
	res.Error = errors.Join(ErrCancelled, cause)

	return res
}
