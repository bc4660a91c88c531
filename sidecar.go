package sidecar

import "time"

// Defaults for supervisor configuration
const (
	// DefaultPort is the fallback port used when ephemeral allocation fails
	DefaultPort uint16 = 8000

	// DefaultPortArg is the command-line flag used to pass the chosen port
	// to the sidecar process
	DefaultPortArg = "--port"

	// DefaultReadyTimeout is the maximum time to wait for the sidecar to
	// become ready after spawning
	DefaultReadyTimeout = 10 * time.Second

	// DefaultReadyInterval is the interval between readiness probe attempts
	DefaultReadyInterval = 50 * time.Millisecond

	// DefaultWaitInterval is the polling interval for Wait operations
	DefaultWaitInterval = 10 * time.Millisecond

	// DefaultEventBuffer is the per-subscriber event channel capacity.
	// Subscribers that fall more than this far behind lose events.
	DefaultEventBuffer = 64

	// DefaultStopGrace is how long Stop waits for the event bridge to
	// drain after the process has been killed
	DefaultStopGrace = 5 * time.Second
)

// File modes
const (
	// FileMode is the default mode for created files
	FileMode = 0o644
)

// State represents the lifecycle state of the supervised sidecar
type State int

const (
	// StateStopped indicates no sidecar process is owned by the supervisor
	StateStopped State = iota
	// StateStarting indicates a start attempt is in flight
	StateStarting
	// StateRunning indicates the sidecar process is believed running
	StateRunning
	// StateStopping indicates a stop is in flight
	StateStopping
)

// State string constants
const (
	stateStoppedStr  = "stopped"
	stateStartingStr = "starting"
	stateRunningStr  = "running"
	stateStoppingStr = "stopping"
	stateUnknownStr  = "unknown"
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateStopped:
		return stateStoppedStr
	case StateStarting:
		return stateStartingStr
	case StateRunning:
		return stateRunningStr
	case StateStopping:
		return stateStoppingStr
	default:
		return stateUnknownStr
	}
}

// Operation represents a supervisor or tool operation type
type Operation int

const (
	// OpUnknown represents an unknown operation
	OpUnknown Operation = iota
	// OpStart spawns the sidecar process
	OpStart
	// OpStop terminates the sidecar process
	OpStop
	// OpStatus represents a status query operation
	OpStatus
	// OpWait represents a wait-for-state operation
	OpWait
	// OpCheck represents a CLI presence probe
	OpCheck
	// OpInstall represents a CLI installation
	OpInstall
)

// Operation string constants
const (
	opUnknownStr = "unknown"
	opStartStr   = "start"
	opStopStr    = "stop"
	opStatusStr  = "status"
	opWaitStr    = "wait"
	opCheckStr   = "check"
	opInstallStr = "install"
)

// String returns the string representation of an Operation
func (op Operation) String() string {
	switch op {
	case OpStart:
		return opStartStr
	case OpStop:
		return opStopStr
	case OpStatus:
		return opStatusStr
	case OpWait:
		return opWaitStr
	case OpCheck:
		return opCheckStr
	case OpInstall:
		return opInstallStr
	default:
		return opUnknownStr
	}
}

// Status is a point-in-time snapshot of the supervisor's shared state.
// It is taken under the supervisor's lock and never blocks on process I/O.
type Status struct {
	// State is the current lifecycle state
	State State
	// Running reports whether a sidecar process is believed running
	Running bool
	// Port is the last assigned (or default) port; it persists across
	// restarts as the last-known port even when no process exists
	Port uint16
	// PID is the process ID of the running sidecar, or 0
	PID int
	// LastExit is the exit code of the most recently terminated sidecar.
	// It is -1 when the process was killed or the code is unknown.
	LastExit int
	// LastErr is the most recent background failure observed by the
	// event bridge (stream read errors and the like), or nil
	LastErr error
}
