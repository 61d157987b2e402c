// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package show

import (
	"bytes"
	"context"
	"testing"

	"github.com/prashantv/gostub"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

const savedResults = `results:
  - index: 0
    label: prodigal genome_1
    command: prodigal -i genome_1.fna
    status: completed
    exit_code: 0
    stdout: "done\n"
    duration: 2s
  - index: 1
    label: blastn q1
    command: blastn -query q1.fas
    status: spawn-failed
    exit_code: -1
    error: could not start process
    duration: 0s
`

func showCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	root := &cli.Command{
		Name:           "pdp",
		Writer:         &out,
		ErrWriter:      &out,
		Commands:       []*cli.Command{ShowCmd},
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}

	err := root.Run(t.Context(), append([]string{"pdp", "show"}, args...))

	return out.String(), err
}

func TestShow(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/results.yaml", []byte(savedResults), 0o644))

	stubs := gostub.Stub(&FsFactory, func() afero.Fs { return fs })
	defer stubs.Reset()

	out, err := showCLI(t, "/results.yaml")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ prodigal genome_1")
	assert.Contains(t, out, "✗ blastn q1")
	assert.Contains(t, out, "➜ Error: could not start process")
	assert.Contains(t, out, "1 succeeded, 1 failed")
}

func TestShow_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/broken.yaml", []byte("results: [\n"), 0o644))

	stubs := gostub.Stub(&FsFactory, func() afero.Fs { return fs })
	defer stubs.Reset()

	_, err := showCLI(t, "/missing.yaml")
	require.ErrorIs(t, err, ErrReadFile)

	_, err = showCLI(t, "/broken.yaml")
	require.Error(t, err)
}
