// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package jobfile

import (
	"bufio"
	"bytes"
	"errors"
	"strings"

	"github.com/spf13/afero"
)

// ReadCommandList reads one command per line from path on FsFactory.
// Blank lines and lines starting with # are skipped.
func ReadCommandList(path string) ([]string, error) {
	data, err := afero.ReadFile(FsFactory(), path)
	if err != nil {
		return nil, errors.Join(ErrReadJobFile, err)
	}

	var cmds []string

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), len(data)+1)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		cmds = append(cmds, line)
	}

	if err := sc.Err(); err != nil {
		return nil, errors.Join(ErrReadJobFile, err)
	}

	return cmds, nil
}
