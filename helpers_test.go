//go:build linux || darwin

package sidecar

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/renameio/v2"
)

// writeScript creates an executable shell script acting as a fake sidecar
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	script := "#!/bin/sh\n" + body + "\n"
	if err := renameio.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

// newTestSupervisor builds a supervisor for the given fake sidecar and
// registers a cleanup stop
func newTestSupervisor(t *testing.T, bin string, opts ...Option) *Supervisor {
	t.Helper()

	sup, err := New(NewConfig(bin), opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = sup.Stop(context.Background())
	})
	return sup
}
