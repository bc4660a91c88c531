package sidecar

import (
	"context"
	"testing"
)

func newIdleCommands(t *testing.T) *Commands {
	t.Helper()
	sup, err := New(NewConfig("/nonexistent/backend"))
	if err != nil {
		t.Fatal(err)
	}
	return NewCommands(sup, missingTool())
}

func TestCommandsStatusBeforeStart(t *testing.T) {
	cmds := newIdleCommands(t)
	ctx := context.Background()

	st, err := cmds.GetBackendStatus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Running {
		t.Error("Running = true before any start")
	}
	if st.Port != DefaultPort {
		t.Errorf("Port = %d, want default %d", st.Port, DefaultPort)
	}

	port, err := cmds.GetBackendPort(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if port != DefaultPort {
		t.Errorf("GetBackendPort = %d, want %d", port, DefaultPort)
	}
}

func TestCommandsStopBeforeStart(t *testing.T) {
	cmds := newIdleCommands(t)

	if err := cmds.StopBackend(context.Background()); err != nil {
		t.Errorf("stop with nothing running: got %v, want nil", err)
	}
}

func TestCommandsCheckCLI(t *testing.T) {
	cmds := newIdleCommands(t)

	st, err := cmds.CheckCLI(context.Background())
	if err != nil {
		t.Fatalf("CheckCLI must never hard-fail, got %v", err)
	}
	if st.Installed {
		t.Error("Installed = true for missing tool")
	}
}

func TestCommandsInstallCLIMissingPrereqs(t *testing.T) {
	cmds := newIdleCommands(t)

	if _, err := cmds.InstallCLI(context.Background()); err == nil {
		t.Error("expected error installing without node/npm")
	}
}

func TestCommandsNilTool(t *testing.T) {
	sup, err := New(NewConfig("/nonexistent/backend"))
	if err != nil {
		t.Fatal(err)
	}
	cmds := NewCommands(sup, nil)
	ctx := context.Background()

	if st, err := cmds.CheckCLI(ctx); err != nil || st.Installed {
		t.Errorf("CheckCLI with nil tool: st=%+v err=%v", st, err)
	}
	if _, err := cmds.InstallCLI(ctx); err == nil {
		t.Error("InstallCLI with nil tool should fail")
	}
}
