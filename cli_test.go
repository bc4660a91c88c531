package sidecar

import (
	"context"
	"errors"
	"testing"
)

// missingTool returns a Tool whose executables cannot exist in PATH
func missingTool() *Tool {
	t := NewTool("go-sidecar-test-missing-cli", "@example/missing")
	t.NodePath = "go-sidecar-test-missing-node"
	t.NpmPath = "go-sidecar-test-missing-npm"
	return t
}

func TestCheckMissingTool(t *testing.T) {
	st := missingTool().Check(context.Background())

	if st.Installed {
		t.Error("Installed = true, want false")
	}
	if st.Path != "" {
		t.Errorf("Path = %q, want empty", st.Path)
	}
	if st.Version != "" {
		t.Errorf("Version = %q, want empty", st.Version)
	}
	if st.NodeInstalled || st.NpmInstalled {
		t.Error("prerequisites reported installed for nonexistent executables")
	}
}

func TestInstallMissingNode(t *testing.T) {
	res, err := missingTool().Install(context.Background())

	if err == nil {
		t.Fatal("expected error when node is missing")
	}
	var opErr *OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("got %T, want *OpError", err)
	}
	if opErr.Op != OpInstall {
		t.Errorf("Op = %v, want %v", opErr.Op, OpInstall)
	}
	if res.Success {
		t.Error("Success = true, want false")
	}
	if res.Message == "" {
		t.Error("expected a human-readable message")
	}
}

func TestStatusCache(t *testing.T) {
	tool := missingTool()
	ctx := context.Background()

	st := tool.Status(ctx, false)
	if st.Installed {
		t.Fatal("missing tool reported installed")
	}

	// Poison the cache to prove Status serves it without re-probing
	tool.mu.Lock()
	tool.cached = &CLIStatus{Installed: true, Version: "9.9.9"}
	tool.mu.Unlock()

	if st := tool.Status(ctx, false); !st.Installed {
		t.Error("Status(refresh=false) did not serve the cache")
	}
	if st := tool.Status(ctx, true); st.Installed {
		t.Error("Status(refresh=true) served stale cache")
	}
}

func TestUninstallNotInstalled(t *testing.T) {
	res, err := missingTool().Uninstall(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Error("uninstalling an absent tool should be a no-op success")
	}
}

func TestParseToolVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"some-tool v1.2.3", "1.2.3"},
		{"v2.0.0", "2.0.0"},
		{"1.2.3", "1.2.3"},
		{"  v0.5.1 (build abc)  ", "0.5.1"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := parseToolVersion(tt.in); got != tt.want {
			t.Errorf("parseToolVersion(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
