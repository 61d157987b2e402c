// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/matt-FFFFFF/pdp/internal/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func echoCommands(n int) []string {
	cmds := make([]string, n)
	for i := range cmds {
		cmds[i] = "echo " + strconv.Itoa(i)
	}

	return cmds
}

func TestNewPool_Workers(t *testing.T) {
	assert.Equal(t, runtime.NumCPU(), NewPool(0, nil).Workers())
	assert.Equal(t, runtime.NumCPU(), NewPool(-3, nil).Workers())
	assert.Equal(t, 7, NewPool(7, nil).Workers())
}

func TestRunBatch_OrderMatchesSubmission(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	results, err := RunBatch(testContext(t), echoCommands(20), 4)
	require.NoError(t, err)
	require.Len(t, results, 20)

	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, fmt.Sprintf("%d\n", i), string(r.StdOut))
		assert.Equal(t, fmt.Sprintf("echo %d", i), r.Descriptor.Text())
		assert.Equal(t, i, r.Descriptor.Origin())
		assert.True(t, r.Succeeded())
	}

	assert.False(t, results.HasError())
	assert.NoError(t, results.Err())
}

func TestRunBatch_WorkerCountDoesNotChangeResults(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	cmds := []string{"echo a", "exit 3", "echo b >&2; echo c", "printf x"}

	var want []string

	for _, workers := range []int{1, 2, 0, 1000} {
		results, err := RunBatch(testContext(t), cmds, workers)
		require.NoError(t, err, "workers=%d", workers)
		require.Len(t, results, len(cmds))

		got := make([]string, len(results))
		for i, r := range results {
			got[i] = fmt.Sprintf("%d|%s|%d", r.Index, r.StdOut, r.ExitCode)
		}

		if want == nil {
			want = got
			continue
		}

		assert.Equal(t, want, got, "workers=%d", workers)
	}

	assert.Equal(t, []string{"0|a\n|0", "1||3", "2|c\n|0", "3|x|0"}, want)
}

func TestRunBatch_Empty(t *testing.T) {
	defer goleak.VerifyNone(t)

	results, err := RunBatch(testContext(t), nil, 4)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)

	results, err = NewPool(2, nil).RunBatch(testContext(t), []Descriptor{})
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestRunBatch_InvalidInputSpawnsNothing(t *testing.T) {
	rep := &recordingReporter{}

	_, err := RunBatch(testContext(t), []string{"echo a", "  "}, 2, WithReporter(rep))
	require.ErrorIs(t, err, ErrInvalidCommand)

	_, err = NewPool(2, nil, WithReporter(rep)).RunBatch(testContext(t), []Descriptor{mustDescriptor(t, "echo a"), {}})
	require.ErrorIs(t, err, ErrInvalidCommand)
	assert.Contains(t, err.Error(), "descriptor 1")

	assert.Empty(t, rep.byIndex())
}

func TestRunBatch_SpawnFailureDoesNotAffectSiblings(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	p := DefaultPolicy()
	p.Shell = ShellNone

	results, err := RunBatch(testContext(t), []string{"echo a", "pdp-no-such-binary", "echo c"}, 2, WithPolicy(p))
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "a\n", string(results[0].StdOut))
	assert.Equal(t, ResultStatusSpawnFailed, results[1].Status)
	require.ErrorIs(t, results[1].Error, ErrSpawn)
	assert.Equal(t, "c\n", string(results[2].StdOut))

	assert.True(t, results.HasError())
	assert.Len(t, results.Failed(), 1)
	assert.Len(t, results.SpawnFailures(), 1)

	err = results.Err()

	var be *BatchError

	require.ErrorAs(t, err, &be)
	assert.Equal(t, 3, be.Total)
	require.ErrorIs(t, err, ErrBatchFailed)
	require.ErrorIs(t, err, ErrSpawn)
	assert.Contains(t, err.Error(), "1 of 3 commands failed")
}

func TestRunBatch_ConcurrencyBound(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	rep := &recordingReporter{}
	cmds := make([]string, 12)

	for i := range cmds {
		cmds[i] = "sleep 0.05"
	}

	results, err := RunBatch(testContext(t), cmds, 3, WithReporter(rep))
	require.NoError(t, err)
	require.Len(t, results, 12)

	assert.LessOrEqual(t, rep.maxRunning, 3)
	assert.GreaterOrEqual(t, rep.maxRunning, 1)
	assert.False(t, rep.closed, "the pool does not close the reporter")
}

func TestRunBatch_RunsInParallel(t *testing.T) {
	skipOnWindows(t)

	cmds := []string{"sleep 0.5", "sleep 0.5", "sleep 0.5", "sleep 0.5"}

	start := time.Now()
	results, err := RunBatch(testContext(t), cmds, 4)
	require.NoError(t, err)
	assert.False(t, results.HasError())
	assert.Less(t, time.Since(start), 1900*time.Millisecond)
}

func TestRunBatch_Events(t *testing.T) {
	skipOnWindows(t)

	rep := &recordingReporter{}

	_, err := RunBatch(testContext(t), []string{"echo ok", "exit 1"}, 1, WithReporter(rep), WithVerbose(true))
	require.NoError(t, err)

	got := rep.byIndex()
	assert.Equal(t, []progress.EventType{progress.EventQueued, progress.EventStarted, progress.EventCompleted}, got[0])
	assert.Equal(t, []progress.EventType{progress.EventQueued, progress.EventStarted, progress.EventFailed}, got[1])

	for _, e := range rep.events {
		assert.Equal(t, 2, e.Total)
	}
}

func TestRunBatch_Cancellation(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(testContext(t))
	defer cancel()

	rep := &recordingReporter{}
	cmds := make([]string, 10)

	for i := range cmds {
		cmds[i] = "sleep 10"
	}

	time.AfterFunc(200*time.Millisecond, cancel)

	start := time.Now()
	results, err := RunBatch(ctx, cmds, 2, WithReporter(rep))
	require.NoError(t, err)
	require.Len(t, results, 10, "every descriptor yields a result")
	assert.Less(t, time.Since(start), 5*time.Second)

	for i, r := range results {
		assert.Equal(t, ResultStatusCancelled, r.Status, "index %d", i)
		require.ErrorIs(t, r.Error, ErrCancelled)
	}

	for i, types := range rep.byIndex() {
		assert.Equal(t, progress.EventCancelled, types[len(types)-1], "index %d", i)
	}
}

func TestPool_Reuse(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	pool := NewPool(3, NewRunner(DefaultPolicy()))

	for range 3 {
		ds, err := NewDescriptors(echoCommands(5))
		require.NoError(t, err)

		results, err := pool.RunBatch(testContext(t), ds)
		require.NoError(t, err)
		require.Len(t, results, 5)
		assert.Equal(t, "4\n", string(results[4].StdOut))
	}
}
