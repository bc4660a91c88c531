//go:build linux || darwin

// Package proc provides platform-specific process control helpers.
package proc

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// Isolate places the command in its own process group so the whole group
// can be killed together. Must be called before the command starts.
func Isolate(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// Kill forcibly terminates the process and, when it leads its own
// process group, any children it spawned. Killing a process that has
// already exited is a no-op.
func Kill(p *os.Process) error {
	if p == nil {
		return nil
	}

	err := syscall.Kill(-p.Pid, syscall.SIGKILL)
	if err == nil || errors.Is(err, syscall.ESRCH) {
		return nil
	}

	err = p.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}
