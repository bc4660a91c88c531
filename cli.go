package sidecar

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// Default executable names for the CLI tool probes
const (
	// DefaultNodePath is the default name of the Node.js executable
	DefaultNodePath = "node"

	// DefaultNpmPath is the default name of the npm executable
	DefaultNpmPath = "npm"
)

// Tool probes for and installs an npm-distributed command-line tool.
// The probes are stateless shell-outs with no concurrency concerns; a
// cached status is kept only as a convenience for repeated queries.
type Tool struct {
	// Command is the executable name looked up in PATH
	Command string
	// Package is the npm package that provides the command
	Package string
	// NodePath is the Node.js executable used for prerequisite checks
	NodePath string
	// NpmPath is the npm executable used for installation
	NpmPath string

	mu     sync.Mutex
	cached *CLIStatus
}

// CLIStatus describes the installation state of the tool and its
// node/npm prerequisites
type CLIStatus struct {
	Installed     bool   `json:"installed"`
	Path          string `json:"path,omitempty"`
	Version       string `json:"version,omitempty"`
	NodeInstalled bool   `json:"nodeInstalled"`
	NodeVersion   string `json:"nodeVersion,omitempty"`
	NpmInstalled  bool   `json:"npmInstalled"`
	NpmVersion    string `json:"npmVersion,omitempty"`
}

// InstallResult describes the outcome of an install, update, or
// uninstall operation
type InstallResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Version string `json:"version,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// NewTool creates a Tool for the given command and npm package
func NewTool(command, pkg string) *Tool {
	return &Tool{
		Command:  command,
		Package:  pkg,
		NodePath: DefaultNodePath,
		NpmPath:  DefaultNpmPath,
	}
}

// probeVersion runs "<bin> --version" and returns the trimmed output.
// Any failure yields an empty string; probe errors are never surfaced.
func probeVersion(ctx context.Context, bin string) string {
	out, err := exec.CommandContext(ctx, bin, "--version").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// parseToolVersion extracts a bare version from output such as
// "some-tool v1.2.3" or "1.2.3"
func parseToolVersion(out string) string {
	out = strings.TrimSpace(out)
	if i := strings.LastIndex(out, "v"); i >= 0 {
		out = out[i+1:]
	}
	if fields := strings.Fields(out); len(fields) > 0 {
		return fields[0]
	}
	return out
}

// probe checks for an executable in PATH and, when present, its version
func probe(ctx context.Context, bin string) (installed bool, path, version string) {
	p, err := exec.LookPath(bin)
	if err != nil {
		return false, "", ""
	}
	return true, p, probeVersion(ctx, bin)
}

// Check probes the tool and its prerequisites. Probe failures are
// treated as "not installed" and never returned as errors.
func (t *Tool) Check(ctx context.Context) CLIStatus {
	var st CLIStatus

	st.NodeInstalled, _, st.NodeVersion = probe(ctx, t.NodePath)
	st.NpmInstalled, _, st.NpmVersion = probe(ctx, t.NpmPath)

	var raw string
	st.Installed, st.Path, raw = probe(ctx, t.Command)
	if raw != "" {
		st.Version = parseToolVersion(raw)
	}

	t.mu.Lock()
	t.cached = &st
	t.mu.Unlock()

	return st
}

// Status returns the cached status, re-probing when refresh is set or
// nothing has been probed yet
func (t *Tool) Status(ctx context.Context, refresh bool) CLIStatus {
	t.mu.Lock()
	cached := t.cached
	t.mu.Unlock()

	if cached != nil && !refresh {
		return *cached
	}
	return t.Check(ctx)
}

// npm runs an npm subcommand against the tool's package
func (t *Tool) npm(ctx context.Context, verb string) error {
	out, err := exec.CommandContext(ctx, t.NpmPath, verb, "-g", t.Package).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			msg = err.Error()
		}
		return &OpError{Op: OpInstall, Bin: t.NpmPath, Err: fmt.Errorf("npm %s: %s", verb, msg)}
	}
	return nil
}

// Install installs the tool globally via npm after verifying the
// node/npm prerequisites. An already-installed tool is a success.
func (t *Tool) Install(ctx context.Context) (InstallResult, error) {
	st := t.Check(ctx)

	if !st.NodeInstalled {
		return InstallResult{
			Message: "Node.js is required but not installed.",
			Detail:  "Install Node.js from https://nodejs.org/ and retry.",
		}, &OpError{Op: OpInstall, Bin: t.NodePath, Err: fmt.Errorf("node not found in PATH")}
	}
	if !st.NpmInstalled {
		return InstallResult{
			Message: "npm is required but not installed.",
			Detail:  "npm ships with Node.js; reinstall Node.js.",
		}, &OpError{Op: OpInstall, Bin: t.NpmPath, Err: fmt.Errorf("npm not found in PATH")}
	}
	if st.Installed {
		return InstallResult{
			Success: true,
			Message: fmt.Sprintf("%s is already installed (v%s).", t.Command, st.Version),
			Version: st.Version,
		}, nil
	}

	if err := t.npm(ctx, "install"); err != nil {
		return InstallResult{Message: "Installation failed.", Detail: err.Error()}, err
	}

	st = t.Check(ctx)
	if !st.Installed {
		err := &OpError{Op: OpInstall, Bin: t.Command, Err: fmt.Errorf("installed but not found in PATH")}
		return InstallResult{
			Message: "Installation completed but the command was not found.",
			Detail:  "npm install succeeded but the command is not in PATH.",
		}, err
	}

	return InstallResult{
		Success: true,
		Message: fmt.Sprintf("Successfully installed %s v%s", t.Command, st.Version),
		Version: st.Version,
	}, nil
}

// Uninstall removes the tool via npm. Uninstalling a tool that is not
// installed is a no-op success.
func (t *Tool) Uninstall(ctx context.Context) (InstallResult, error) {
	st := t.Status(ctx, false)
	if !st.Installed {
		return InstallResult{
			Success: true,
			Message: fmt.Sprintf("%s is not installed.", t.Command),
		}, nil
	}

	if err := t.npm(ctx, "uninstall"); err != nil {
		return InstallResult{Message: "Uninstallation failed.", Detail: err.Error()}, err
	}

	t.mu.Lock()
	t.cached = nil
	t.mu.Unlock()

	return InstallResult{
		Success: true,
		Message: fmt.Sprintf("Successfully uninstalled %s.", t.Command),
	}, nil
}

// Update reinstalls the tool at its latest version
func (t *Tool) Update(ctx context.Context) (InstallResult, error) {
	st := t.Check(ctx)
	if !st.NpmInstalled {
		return InstallResult{
			Message: "npm is required for updates.",
			Detail:  "Install Node.js and npm first.",
		}, &OpError{Op: OpInstall, Bin: t.NpmPath, Err: fmt.Errorf("npm not found in PATH")}
	}

	if st.Installed {
		// Best effort; a failed uninstall still allows install -g to
		// overwrite the package
		_ = t.npm(ctx, "uninstall")
	}

	if err := t.npm(ctx, "install"); err != nil {
		return InstallResult{Message: "Update failed.", Detail: err.Error()}, err
	}

	st = t.Check(ctx)
	if !st.Installed {
		err := &OpError{Op: OpInstall, Bin: t.Command, Err: fmt.Errorf("updated but not found in PATH")}
		return InstallResult{
			Message: "Update completed but the command was not found.",
			Detail:  "npm install succeeded but the command is not in PATH.",
		}, err
	}

	return InstallResult{
		Success: true,
		Message: fmt.Sprintf("Successfully updated %s to v%s", t.Command, st.Version),
		Version: st.Version,
	}, nil
}
