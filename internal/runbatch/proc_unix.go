// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build !windows

package runbatch

import (
	"errors"
	"os"
	"syscall"
)

// sysProcAttr puts the child in its own process group so that signals sent to
// the group reach anything the shell started.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

func terminate(ps *os.Process) error {
	return signalGroup(ps, syscall.SIGTERM)
}

func kill(ps *os.Process) error {
	return signalGroup(ps, syscall.SIGKILL)
}

func signalGroup(ps *os.Process, sig syscall.Signal) error {
	err := syscall.Kill(-ps.Pid, sig)
	if errors.Is(err, syscall.ESRCH) {
		return os.ErrProcessDone
	}

	return err
}
