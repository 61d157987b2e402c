// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package jobfile

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/matt-FFFFFF/pdp/internal/ctxlog"
)

const outputDirPerm = 0o755

var (
	// ErrOutputDirectoryExists is returned when the output directory exists and force is not set.
	ErrOutputDirectoryExists = errors.New("output directory already exists")
	// ErrCreateOutputDirectory is returned when the output directory cannot be created.
	ErrCreateOutputDirectory = errors.New("failed to create output directory")
)

// CreateOutputDirectory creates dir, and any missing parents, on FsFactory.
// An existing directory is only reused when force is set.
func CreateOutputDirectory(ctx context.Context, dir string, force bool) error {
	fs := FsFactory()

	info, err := fs.Stat(dir)

	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("%w: %s is not a directory", ErrCreateOutputDirectory, dir)
	case err == nil && !force:
		return fmt.Errorf("%w: %s, use force to write into it anyway", ErrOutputDirectoryExists, dir)
	case err == nil:
		ctxlog.Warn(ctx, "output directory exists, reusing it", "path", dir)
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return errors.Join(ErrCreateOutputDirectory, err)
	}

	ctxlog.Info(ctx, "creating output directory", "path", dir)

	if err := fs.MkdirAll(dir, outputDirPerm); err != nil {
		return errors.Join(ErrCreateOutputDirectory, err)
	}

	return nil
}
