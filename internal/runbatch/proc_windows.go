// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build windows

package runbatch

import (
	"os"
	"syscall"
)

func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// terminate kills the process. Windows has no portable graceful stop for console children.
func terminate(ps *os.Process) error {
	return ps.Kill()
}

func kill(ps *os.Process) error {
	return ps.Kill()
}
