// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package run

import (
	"bytes"
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/matt-FFFFFF/pdp/internal/jobfile"
	"github.com/matt-FFFFFF/pdp/internal/runbatch"
	"github.com/prashantv/gostub"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX shell commands")
	}

	var out bytes.Buffer

	root := &cli.Command{
		Name:           "pdp",
		Writer:         &out,
		ErrWriter:      &out,
		Commands:       []*cli.Command{newRunCmd()},
		ExitErrHandler: func(context.Context, *cli.Command, error) {},

		DisableSliceFlagSeparator: true,
	}

	err := root.Run(t.Context(), append([]string{"pdp", "run"}, args...))

	return out.String(), err
}

func requireExitCode(t *testing.T, err error, code int) {
	t.Helper()

	var ec cli.ExitCoder

	require.ErrorAs(t, err, &ec)
	assert.Equal(t, code, ec.ExitCode())
}

func TestRun_Commands(t *testing.T) {
	out, err := runCLI(t, "-c", "echo hi", "-c", "echo there", "-w", "2", "--success", "--stdout")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ echo hi")
	assert.Contains(t, out, "✓ echo there")
	assert.Contains(t, out, "     hi\n")
	assert.Contains(t, out, "2 succeeded, 0 failed")
}

func TestRun_FailureExitsOne(t *testing.T) {
	out, err := runCLI(t, "-c", "echo ok", "-c", "exit 3")
	requireExitCode(t, err, 1)

	assert.Contains(t, out, "(exit code: 3)")
	assert.Contains(t, out, "1 succeeded, 1 failed")
}

func TestRun_NoCommands(t *testing.T) {
	_, err := runCLI(t)
	requireExitCode(t, err, 1)
}

func TestRun_ShellFlagsConflict(t *testing.T) {
	_, err := runCLI(t, "--no-shell", "--shell", "/bin/bash", "-c", "echo hi")
	requireExitCode(t, err, 1)
}

func TestRun_NoShellSpawnFailure(t *testing.T) {
	out, err := runCLI(t, "--no-shell", "-c", "pdp-no-such-binary", "-c", "echo fine")
	requireExitCode(t, err, 1)

	assert.Contains(t, out, "could not start process")
	assert.Contains(t, out, "✓ echo fine")
}

func TestRun_JobFile(t *testing.T) {
	out, err := runCLI(t, "-f", "./testdata/echo.yaml", "--success", "--stdout")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ greet A")
	assert.Contains(t, out, "  ➜ Command: echo hello C\n")
	assert.Contains(t, out, "     hello B\n")
	assert.Contains(t, out, "3 succeeded, 0 failed")
}

func TestRun_InvalidJobFile(t *testing.T) {
	_, err := runCLI(t, "-f", "./testdata/does-not-exist.yaml")
	requireExitCode(t, err, 1)
}

func TestRun_CommandsFromAndOut(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/clines.txt", []byte("# eprimer3 clines\necho one\n\necho two\n"), 0o644))

	stubs := gostub.Stub(&FsFactory, func() afero.Fs { return fs })
	stubs.Stub(&jobfile.FsFactory, func() afero.Fs { return fs })

	defer stubs.Reset()

	_, err := runCLI(t, "--commands-from", "/clines.txt", "--out", "/results.yaml")
	require.NoError(t, err)

	f, err := fs.Open("/results.yaml")
	require.NoError(t, err)

	defer f.Close() //nolint:errcheck

	results, err := runbatch.ReadYAML(f)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "echo one", results[0].Descriptor.Text())
	assert.Equal(t, "two\n", string(results[1].StdOut))
	assert.Equal(t, runbatch.ResultStatusCompleted, results[1].Status)
}

func TestRun_LogFile(t *testing.T) {
	fs := afero.NewMemMapFs()

	stubs := gostub.Stub(&FsFactory, func() afero.Fs { return fs })
	defer stubs.Reset()

	_, err := runCLI(t, "-l", "/pdp.log", "-c", "echo logged")
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "/pdp.log")
	require.NoError(t, err)
	assert.Contains(t, string(data), "command lines")
	assert.Contains(t, string(data), "echo logged")
}

func TestRun_Timeout(t *testing.T) {
	out, err := runCLI(t, "--timeout", "100ms", "-c", "sleep 10")
	requireExitCode(t, err, 1)

	assert.Contains(t, out, "timeout exceeded")
}

func TestRun_BatchTimeoutCancelsQueued(t *testing.T) {
	out, err := runCLI(t, "--batch-timeout", "200ms", "-w", "1", "-c", "sleep 10", "-c", "echo never")
	requireExitCode(t, err, 1)

	assert.Contains(t, out, "0 succeeded, 2 failed")
	assert.False(t, errors.Is(err, context.Canceled))
}

func TestRun_OutdirIsCreated(t *testing.T) {
	fs := afero.NewMemMapFs()

	stubs := gostub.Stub(&jobfile.FsFactory, func() afero.Fs { return fs })
	defer stubs.Reset()

	out, err := runCLI(t, "--outdir", "/work/eprimer3", "-c", "echo hi")
	require.NoError(t, err)
	assert.Contains(t, out, "1 succeeded, 0 failed")

	ok, err := afero.DirExists(fs, "/work/eprimer3")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRun_ExistingOutdirNeedsForce(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/work/eprimer3", 0o755))

	stubs := gostub.Stub(&jobfile.FsFactory, func() afero.Fs { return fs })
	defer stubs.Reset()

	out, err := runCLI(t, "--outdir", "/work/eprimer3", "-c", "echo hi")
	requireExitCode(t, err, 1)
	assert.NotContains(t, out, "succeeded", "nothing runs when the output directory is refused")

	out, err = runCLI(t, "--outdir", "/work/eprimer3", "--force", "-c", "echo hi")
	require.NoError(t, err)
	assert.Contains(t, out, "1 succeeded, 0 failed")
}
