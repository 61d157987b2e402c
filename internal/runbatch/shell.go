// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/mattn/go-shellwords"
)

const (
	goosWindows          = "windows"
	commandSwitchWindows = "/C"
	commandSwitchUnix    = "-c"
	winSystem32          = "System32"
	cmdExe               = "cmd.exe"
	binSh                = "/bin/sh"
	winSystemRootEnv     = "SystemRoot"
)

// ErrSplitCommand is returned when a command line cannot be split into words.
var ErrSplitCommand = errors.New("cannot split command line")

// argv resolves the executable path and argument vector for text under p.
// Errors are spawn failures: nothing has been started yet.
func (p Policy) argv(text string) (string, []string, error) {
	switch p.Shell {
	case ShellNone:
		words, err := shellwords.Parse(text)
		if err != nil {
			return "", nil, errors.Join(ErrSplitCommand, err)
		}

		if len(words) == 0 {
			return "", nil, fmt.Errorf("%w: no words in %q", ErrSplitCommand, text)
		}

		path, err := exec.LookPath(words[0])
		if err != nil {
			return "", nil, err
		}

		return path, words, nil
	default:
		shell := p.ShellPath
		if shell == "" {
			shell = defaultShell()
		}

		if runtime.GOOS == goosWindows {
			return shell, []string{shell, commandSwitchWindows, text}, nil
		}

		return shell, []string{shell, commandSwitchUnix, text}, nil
	}
}

func defaultShell() string {
	if runtime.GOOS == goosWindows {
		systemRoot := os.Getenv(winSystemRootEnv)
		if systemRoot == "" {
			systemRoot = `C:\Windows`
		}

		return fmt.Sprintf(`%s\%s\%s`, systemRoot, winSystem32, cmdExe)
	}

	return binSh
}
