// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/pdp/internal/ctxlog"
	"github.com/matt-FFFFFF/pdp/internal/progress"
)

// Pool runs batches of descriptors on a bounded number of worker goroutines.
// A Pool may be reused for any number of sequential or concurrent batches;
// the worker bound applies per batch.
type Pool struct {
	workers  int
	runner   *Runner
	reporter progress.Reporter
	verbose  bool
}

// Option configures a Pool or the package level RunBatch.
type Option func(o *options)

type options struct {
	policy   Policy
	reporter progress.Reporter
	verbose  bool
}

// WithPolicy sets the policy used to build the Runner when none is supplied.
func WithPolicy(p Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithReporter sends a progress event for every state change of every descriptor.
// The reporter is not closed by the pool.
func WithReporter(r progress.Reporter) Option {
	return func(o *options) {
		o.reporter = r
	}
}

// WithVerbose logs every command line at info level before it is scheduled.
func WithVerbose(verbose bool) Option {
	return func(o *options) {
		o.verbose = verbose
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		policy:   DefaultPolicy(),
		reporter: progress.NullReporter{},
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.reporter == nil {
		o.reporter = progress.NullReporter{}
	}

	return o
}

// NewPool creates a Pool with the given worker count.
// workers <= 0 selects runtime.NumCPU(). A nil runner is built from WithPolicy.
func NewPool(workers int, runner *Runner, opts ...Option) *Pool {
	o := newOptions(opts)

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	if runner == nil {
		runner = NewRunner(o.policy)
	}

	return &Pool{
		workers:  workers,
		runner:   runner,
		reporter: o.reporter,
		verbose:  o.verbose,
	}
}

// Workers returns the maximum number of concurrently running children.
func (p *Pool) Workers() int {
	return p.workers
}

// RunBatch runs every descriptor and returns one result per descriptor, in submission order.
// It blocks until all children have exited and all workers have returned.
// Descriptors not yet started when ctx ends are not spawned and yield cancelled results.
// The only errors are invalid input and ErrResultMissing; command failures are reported in the results.
func (p *Pool) RunBatch(ctx context.Context, descriptors []Descriptor) (Results, error) {
	n := len(descriptors)
	if n == 0 {
		return Results{}, nil
	}

	if err := validate(descriptors); err != nil {
		return nil, err
	}

	batchID := uuid.NewString()
	logger := ctxlog.Logger(ctx).With("batch", batchID)
	ctx = ctxlog.New(ctx, logger)

	workers := min(p.workers, n)

	logger.Debug("starting batch", "descriptors", n, "workers", workers)

	jobs := make(chan int, n)

	for i, d := range descriptors {
		if p.verbose {
			logger.Info("queued command", "index", i, "label", d.Label(), "command", d.Text())
		}

		p.report(i, n, d, progress.EventQueued, "queued", progress.EventData{})

		jobs <- i
	}

	close(jobs)

	results := make(chan *Result, n)

	var wg sync.WaitGroup

	for w := range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()
			p.work(ctx, w, descriptors, jobs, results)
		}()
	}

	wg.Wait()
	close(results)

	out, err := collect(results, n)
	if err != nil {
		return out, err
	}

	logger.Debug("batch finished", "failed", len(out.Failed()))

	return out, nil
}

// work runs jobs until the channel is drained. Each worker runs at most one child at a time.
func (p *Pool) work(ctx context.Context, worker int, descriptors []Descriptor, jobs <-chan int, results chan<- *Result) {
	n := len(descriptors)

	for i := range jobs {
		d := descriptors[i]

		if err := ctx.Err(); err != nil {
			res := abandoned(&Result{Descriptor: d, Index: i}, err)
			p.report(i, n, d, progress.EventCancelled, "not started", progress.EventData{
				Worker:   worker,
				ExitCode: res.ExitCode,
				Error:    res.Error,
			})

			results <- res

			continue
		}

		p.report(i, n, d, progress.EventStarted, "running", progress.EventData{Worker: worker})

		res := p.runner.Run(ctx, i, d)

		et, msg := terminalEvent(res)
		p.report(i, n, d, et, msg, progress.EventData{
			Worker:   worker,
			ExitCode: res.ExitCode,
			Error:    res.Error,
			Duration: res.Duration,
		})

		results <- res
	}
}

func (p *Pool) report(i, n int, d Descriptor, et progress.EventType, msg string, data progress.EventData) {
	p.reporter.Report(progress.Event{
		Index:     i,
		Total:     n,
		Label:     d.Label(),
		Type:      et,
		Message:   msg,
		Timestamp: time.Now(),
		Data:      data,
	})
}

func terminalEvent(res *Result) (progress.EventType, string) {
	switch {
	case res.Succeeded():
		return progress.EventCompleted, "completed"
	case res.Status == ResultStatusCancelled:
		return progress.EventCancelled, "cancelled"
	case res.Status == ResultStatusCompleted:
		return progress.EventFailed, fmt.Sprintf("exit code %d", res.ExitCode)
	default:
		return progress.EventFailed, res.Status.String()
	}
}

func validate(descriptors []Descriptor) error {
	var merr *multierror.Error

	for i, d := range descriptors {
		if !d.Valid() {
			merr = multierror.Append(merr, fmt.Errorf("descriptor %d: %w", i, ErrInvalidCommand))
		}
	}

	return merr.ErrorOrNil()
}

// RunBatch validates commands, runs them on a pool of workers and returns the
// results in the order the commands were given.
// workers <= 0 selects runtime.NumCPU().
func RunBatch(ctx context.Context, commands []string, workers int, opts ...Option) (Results, error) {
	descriptors, err := NewDescriptors(commands)
	if err != nil {
		return nil, err
	}

	return NewPool(workers, nil, opts...).RunBatch(ctx, descriptors)
}
