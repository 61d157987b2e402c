// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build !windows

package runbatch

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// alive reports whether pid is a live process. Zombies waiting to be reaped by init count as dead.
func alive(pid int) bool {
	if err := syscall.Kill(pid, 0); errors.Is(err, syscall.ESRCH) {
		return false
	}

	stat, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return true
	}

	// The state follows the parenthesised command name.
	fields := strings.Fields(string(stat[strings.LastIndexByte(string(stat), ')')+1:]))

	return len(fields) > 0 && fields[0] != "Z" && fields[0] != "X"
}

func backgroundPid(t *testing.T, out []byte) int {
	t.Helper()

	pid, err := strconv.Atoi(strings.TrimSpace(string(out)))
	require.NoError(t, err, "stdout should hold the background pid, got %q", out)

	t.Cleanup(func() { _ = syscall.Kill(pid, syscall.SIGKILL) })

	return pid
}

func TestRunBatch_NoProcessOutlivesBatch(t *testing.T) {
	results, err := RunBatch(testContext(t), []string{"sleep 30 >/dev/null 2>&1 & echo $!"}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.True(t, results[0].Succeeded())

	pid := backgroundPid(t, results[0].StdOut)

	assert.Eventually(t, func() bool { return !alive(pid) }, 2*time.Second, 20*time.Millisecond,
		"background process %d should be killed when the batch returns", pid)
}

func TestRunnerRun_TimeoutKillsGrandchildren(t *testing.T) {
	p := DefaultPolicy()
	p.Timeout = 200 * time.Millisecond

	res := NewRunner(p).Run(testContext(t), 0, mustDescriptor(t, "sleep 30 & echo $!; wait"))
	require.Equal(t, ResultStatusTimedOut, res.Status)

	pid := backgroundPid(t, res.StdOut)

	assert.Eventually(t, func() bool { return !alive(pid) }, 2*time.Second, 20*time.Millisecond)
}
