package sidecar

import "context"

// Commands is the external-facing command surface a host shell invokes.
// It wraps one Supervisor and one Tool; each method maps to a single
// host command and returns wire-friendly values.
type Commands struct {
	sup  *Supervisor
	tool *Tool
}

// BackendStatus is the wire shape of a status query
type BackendStatus struct {
	Running bool   `json:"running"`
	Port    uint16 `json:"port"`
}

// NewCommands creates the command surface for the given supervisor and
// tool. The tool may be nil when the host exposes no CLI management.
func NewCommands(sup *Supervisor, tool *Tool) *Commands {
	return &Commands{sup: sup, tool: tool}
}

// StartBackend starts the sidecar and returns its port
func (c *Commands) StartBackend(ctx context.Context) (uint16, error) {
	return c.sup.Start(ctx)
}

// StopBackend stops the sidecar
func (c *Commands) StopBackend(ctx context.Context) error {
	return c.sup.Stop(ctx)
}

// GetBackendStatus returns the running flag and last-known port
func (c *Commands) GetBackendStatus(_ context.Context) (BackendStatus, error) {
	st := c.sup.Status()
	return BackendStatus{Running: st.Running, Port: st.Port}, nil
}

// GetBackendPort returns the last assigned (or default) port
func (c *Commands) GetBackendPort(_ context.Context) (uint16, error) {
	return c.sup.Port(), nil
}

// Subscribe registers an event subscriber on the underlying supervisor
func (c *Commands) Subscribe() (<-chan Event, func()) {
	return c.sup.Subscribe()
}

// CheckCLI probes the managed CLI tool. Probe failures mean "not
// installed"; the error return is always nil and exists for command
// dispatch symmetry.
func (c *Commands) CheckCLI(ctx context.Context) (CLIStatus, error) {
	if c.tool == nil {
		return CLIStatus{}, nil
	}
	return c.tool.Check(ctx), nil
}

// InstallCLI installs the managed CLI tool and returns a human-readable
// message on success
func (c *Commands) InstallCLI(ctx context.Context) (string, error) {
	if c.tool == nil {
		return "", &OpError{Op: OpInstall, Bin: "", Err: ErrConfig}
	}
	res, err := c.tool.Install(ctx)
	if err != nil {
		return "", err
	}
	return res.Message, nil
}
