package sidecar

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/axondata/go-sidecar/internal/proc"
)

// Config describes how to launch the sidecar process. The zero value is
// not usable; create one with NewConfig and refine it with the With*
// methods.
type Config struct {
	// Bin is the path to the sidecar executable
	Bin string
	// Args are arguments passed before the port flag
	Args []string
	// Dir is the working directory for the sidecar
	Dir string
	// Env contains additional environment variables for the sidecar,
	// merged over the host environment
	Env map[string]string
	// PortArg is the flag used to pass the selected port; the sidecar is
	// invoked as "bin args... <PortArg> <port>"
	PortArg string
}

// NewConfig creates a Config for the given executable with default settings
func NewConfig(bin string) *Config {
	return &Config{
		Bin:     bin,
		Env:     make(map[string]string),
		PortArg: DefaultPortArg,
	}
}

// WithArgs sets the arguments passed before the port flag
func (c *Config) WithArgs(args ...string) *Config {
	c.Args = args
	return c
}

// WithDir sets the working directory for the sidecar
func (c *Config) WithDir(dir string) *Config {
	c.Dir = dir
	return c
}

// WithEnv adds an environment variable for the sidecar
func (c *Config) WithEnv(key, value string) *Config {
	if c.Env == nil {
		c.Env = make(map[string]string)
	}
	c.Env[key] = value
	return c
}

// WithPortArg overrides the flag used to pass the selected port
func (c *Config) WithPortArg(flag string) *Config {
	c.PortArg = flag
	return c
}

// validate checks the config for obvious misconfiguration
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil config", ErrConfig)
	}
	if c.Bin == "" {
		return fmt.Errorf("%w: empty executable path", ErrConfig)
	}
	return nil
}

// command builds the exec.Cmd for one launch with the given port
func (c *Config) command(port uint16) *exec.Cmd {
	args := make([]string, 0, len(c.Args)+2)
	args = append(args, c.Args...)
	args = append(args, c.PortArg, strconv.Itoa(int(port)))

	cmd := exec.Command(c.Bin, args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		env := os.Environ()
		for k, v := range c.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}
	proc.Isolate(cmd)
	return cmd
}
