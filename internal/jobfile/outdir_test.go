// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package jobfile

import (
	"testing"

	"github.com/prashantv/gostub"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOutputDirectory(t *testing.T) {
	testCases := []struct {
		name    string
		force   bool
		setup   func(fs afero.Fs)
		wantErr error
	}{
		{
			name: "missing directory is created",
		},
		{
			name:    "existing directory is refused",
			setup:   func(fs afero.Fs) { _ = fs.MkdirAll("/work/out", 0o755) },
			wantErr: ErrOutputDirectoryExists,
		},
		{
			name:  "existing directory is reused with force",
			force: true,
			setup: func(fs afero.Fs) { _ = fs.MkdirAll("/work/out", 0o755) },
		},
		{
			name:    "file in the way",
			force:   true,
			setup:   func(fs afero.Fs) { _ = afero.WriteFile(fs, "/work/out", []byte("x"), 0o644) },
			wantErr: ErrCreateOutputDirectory,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if tc.setup != nil {
				tc.setup(fs)
			}

			stubs := gostub.Stub(&FsFactory, func() afero.Fs { return fs })
			defer stubs.Reset()

			err := CreateOutputDirectory(t.Context(), "/work/out", tc.force)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)

			ok, err := afero.DirExists(fs, "/work/out")
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestDefinition_OutputDir(t *testing.T) {
	def, err := Parse([]byte(`
working_directory: /data
output_directory: prodigal_out
force: true
template:
  command: "prodigal -i ${unit.name}.fna -o ${var.output_directory}/${unit.name}.gff"
  units:
    - { name: g1 }
`))
	require.NoError(t, err)

	assert.Equal(t, "/data/prodigal_out", def.OutputDir())
	assert.True(t, def.Force)
	assert.Equal(t, "prodigal -i g1.fna -o prodigal_out/g1.gff", def.Descriptors()[0].Text())

	def, err = Parse([]byte("output_directory: /abs/out\nvars: { output_directory: mine }\njobs:\n  - command: echo ${var.output_directory}\n"))
	require.NoError(t, err)

	assert.Equal(t, "/abs/out", def.OutputDir())
	assert.Equal(t, "echo mine", def.Descriptors()[0].Text(), "an explicit variable wins")
}
