//go:build !linux && !darwin

// Package proc provides platform-specific process control helpers.
package proc

import (
	"errors"
	"os"
	"os/exec"
)

// Isolate is a no-op on platforms without process groups
func Isolate(_ *exec.Cmd) {}

// Kill forcibly terminates the process. Killing a process that has
// already exited is a no-op.
func Kill(p *os.Process) error {
	if p == nil {
		return nil
	}

	err := p.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}
