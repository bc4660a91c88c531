package sidecar

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/axondata/go-sidecar/internal/proc"
)

// Supervisor owns the lifecycle of a single sidecar process: it launches
// the process with a negotiated port, keeps a consistent running/stopped
// view of it under concurrent access, and feeds its output to subscribers
// through the event bridge.
//
// All shared state lives behind one mutex. Start, Stop, and the event
// bridge's exit write-back serialize through it, so every Status observer
// sees a state consistent with the most recently completed transition.
// No I/O (spawning, killing, readiness probing) happens while the lock
// is held.
type Supervisor struct {
	cfg *Config

	// ReadyTimeout bounds the readiness wait after a spawn
	ReadyTimeout time.Duration

	// ReadyInterval is the delay between readiness probe attempts
	ReadyInterval time.Duration

	// ReadyDelay, when set, replaces probing with a fixed sleep for
	// sidecars that expose no probe surface
	ReadyDelay time.Duration

	// ReadyFile, when set, switches readiness to watching for the
	// sidecar to create this file
	ReadyFile string

	// StateFile, when set, receives an atomically-written JSON snapshot
	// of {port, pid, running} after every lifecycle transition
	StateFile string

	// StopGrace bounds how long Stop waits for the event bridge to
	// drain after the process has been killed
	StopGrace time.Duration

	// EventBuffer is the per-subscriber event channel capacity
	EventBuffer int

	pick func() uint16
	bc   *Broadcaster

	mu       sync.Mutex
	state    State
	cmd      *exec.Cmd
	port     uint16
	lastExit int
	lastErr  error

	// flight is non-nil while a start or stop is in progress and is
	// closed when the attempt settles; concurrent callers join it
	// instead of racing the transition
	flight    chan struct{}
	startPort uint16
	startErr  error

	// done is closed once the bridge for the current process has
	// drained both streams and observed the exit
	done chan struct{}
}

// Option configures a Supervisor
type Option func(*Supervisor)

// WithReadyTimeout sets the maximum readiness wait after a spawn
func WithReadyTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		s.ReadyTimeout = d
	}
}

// WithReadyInterval sets the delay between readiness probe attempts
func WithReadyInterval(d time.Duration) Option {
	return func(s *Supervisor) {
		s.ReadyInterval = d
	}
}

// WithReadyDelay replaces readiness probing with a fixed sleep
func WithReadyDelay(d time.Duration) Option {
	return func(s *Supervisor) {
		s.ReadyDelay = d
	}
}

// WithReadyFile switches readiness to waiting for the sidecar to create
// the given file
func WithReadyFile(path string) Option {
	return func(s *Supervisor) {
		s.ReadyFile = path
	}
}

// WithStateFile enables persisting a state snapshot to the given path
// after every lifecycle transition
func WithStateFile(path string) Option {
	return func(s *Supervisor) {
		s.StateFile = path
	}
}

// WithStopGrace sets how long Stop waits for the bridge to drain
func WithStopGrace(d time.Duration) Option {
	return func(s *Supervisor) {
		s.StopGrace = d
	}
}

// WithEventBuffer sets the per-subscriber event channel capacity
func WithEventBuffer(n int) Option {
	return func(s *Supervisor) {
		s.EventBuffer = n
	}
}

// WithPortPicker overrides the port allocation function
func WithPortPicker(pick func() uint16) Option {
	return func(s *Supervisor) {
		s.pick = pick
	}
}

// New creates a Supervisor for the given sidecar config. The supervisor
// starts in StateStopped with the default port as its last-known port.
func New(cfg *Config, opts ...Option) (*Supervisor, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &Supervisor{
		cfg:           cfg,
		ReadyTimeout:  DefaultReadyTimeout,
		ReadyInterval: DefaultReadyInterval,
		StopGrace:     DefaultStopGrace,
		EventBuffer:   DefaultEventBuffer,
		pick:          PickPort,
		port:          DefaultPort,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.pick == nil {
		s.pick = PickPort
	}
	s.bc = NewBroadcaster(s.EventBuffer)

	return s, nil
}

// Subscribe registers an event subscriber. The returned channel receives
// log, error, and terminated events for every sidecar process this
// supervisor launches until the cancel function is called.
func (s *Supervisor) Subscribe() (<-chan Event, func()) {
	return s.bc.Subscribe()
}

// Start launches the sidecar if it is not already running and returns
// the port it was given. A Start against a running supervisor returns
// the current port without spawning. Concurrent Start calls against a
// stopped supervisor resolve to a single spawn: the first caller claims
// the transition and the rest join its outcome, so all callers observe
// the same port or the same error.
func (s *Supervisor) Start(ctx context.Context) (uint16, error) {
	for {
		s.mu.Lock()
		switch s.state {
		case StateRunning:
			port := s.port
			s.mu.Unlock()
			return port, nil

		case StateStarting, StateStopping:
			join := s.state == StateStarting
			ch := s.flight
			s.mu.Unlock()

			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-ch:
			}
			if join {
				s.mu.Lock()
				port, err := s.startPort, s.startErr
				s.mu.Unlock()
				return port, err
			}
			// a stop settled; re-evaluate

		case StateStopped:
			flight := make(chan struct{})
			s.state = StateStarting
			s.flight = flight
			s.mu.Unlock()

			port, err := s.start(ctx)

			s.mu.Lock()
			s.startPort, s.startErr = port, err
			// An unsolicited exit during the attempt can let another
			// caller claim a fresh transition; only release our own
			// flight channel.
			if s.flight == flight {
				s.flight = nil
			}
			s.mu.Unlock()
			close(flight)
			return port, err
		}
	}
}

// start performs one spawn attempt. The caller has already claimed the
// StateStarting phase, so no other writer can race the commit.
func (s *Supervisor) start(ctx context.Context) (uint16, error) {
	port := s.pick()

	cmd := s.cfg.command(port)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.settle(StateStopped)
		return 0, &OpError{Op: OpStart, Bin: s.cfg.Bin, Err: fmt.Errorf("%w: %v", ErrSpawn, err)}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		s.settle(StateStopped)
		return 0, &OpError{Op: OpStart, Bin: s.cfg.Bin, Err: fmt.Errorf("%w: %v", ErrSpawn, err)}
	}

	if err := cmd.Start(); err != nil {
		s.settle(StateStopped)
		return 0, &OpError{Op: OpStart, Bin: s.cfg.Bin, Err: fmt.Errorf("%w: %v", ErrSpawn, err)}
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.cmd = cmd
	s.port = port
	s.state = StateRunning
	s.lastErr = nil
	s.done = done
	s.mu.Unlock()
	s.persist()

	s.attach(cmd, stdout, stderr, done)

	if err := s.awaitReady(ctx, port); err != nil {
		// Take the handle back before tearing down; the bridge may
		// already have observed an exit and released it.
		s.mu.Lock()
		owned := s.cmd == cmd
		if owned {
			s.cmd = nil
			s.state = StateStopping
		}
		s.mu.Unlock()
		if owned {
			_ = s.halt(context.Background(), cmd, done)
		}
		return 0, &OpError{Op: OpStart, Bin: s.cfg.Bin, Err: err}
	}
	return port, nil
}

// Stop terminates the sidecar if one is running. Stopping an already
// stopped supervisor is a no-op success. The state is force-reset to
// stopped even when the kill primitive fails; the failure is still
// returned to the caller.
func (s *Supervisor) Stop(ctx context.Context) error {
	for {
		s.mu.Lock()
		switch s.state {
		case StateStopped:
			s.mu.Unlock()
			return nil

		case StateStarting, StateStopping:
			join := s.state == StateStopping
			ch := s.flight
			s.mu.Unlock()

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ch:
			}
			if join {
				return nil
			}
			// a start settled; re-evaluate

		case StateRunning:
			cmd := s.cmd
			done := s.done
			s.cmd = nil
			flight := make(chan struct{})
			s.state = StateStopping
			s.flight = flight
			s.mu.Unlock()

			err := s.halt(ctx, cmd, done)

			s.mu.Lock()
			if s.flight == flight {
				s.flight = nil
			}
			s.mu.Unlock()
			close(flight)

			if err != nil {
				return &OpError{Op: OpStop, Bin: s.cfg.Bin, Err: err}
			}
			return nil
		}
	}
}

// halt kills the process, waits for its bridge to drain, and resets the
// shared state to stopped. The caller has already taken the handle out
// of shared state. It is shared by Stop and by the teardown of a spawn
// whose readiness wait failed.
func (s *Supervisor) halt(ctx context.Context, cmd *exec.Cmd, done chan struct{}) error {
	var killErr error
	if cmd != nil && cmd.Process != nil {
		killErr = proc.Kill(cmd.Process)
	}

	if done != nil {
		select {
		case <-done:
		case <-time.After(s.StopGrace):
		case <-ctx.Done():
		}
	}

	s.settle(StateStopped)
	s.persist()

	if killErr != nil {
		return fmt.Errorf("%w: %v", ErrKill, killErr)
	}
	return nil
}

// Status returns a snapshot of the supervisor's state taken under the
// lock. It never blocks on process I/O.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:    s.state,
		Running:  s.state == StateRunning,
		Port:     s.port,
		LastExit: s.lastExit,
		LastErr:  s.lastErr,
	}
	if s.cmd != nil && s.cmd.Process != nil {
		st.PID = s.cmd.Process.Pid
	}
	return st
}

// Port returns the last assigned port, or the default when no sidecar
// has ever been started.
func (s *Supervisor) Port() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Wait blocks until the supervisor reaches one of the specified states
// or the context is cancelled. If states is nil or empty, it waits for
// any state change from the state observed at entry.
func (s *Supervisor) Wait(ctx context.Context, states []State) (Status, error) {
	initial := s.Status().State

	matches := func(st State) bool {
		if len(states) == 0 {
			return st != initial
		}
		for _, want := range states {
			if st == want {
				return true
			}
		}
		return false
	}

	if st := s.Status(); matches(st.State) {
		return st, nil
	}

	ticker := time.NewTicker(DefaultWaitInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Status{}, &OpError{Op: OpWait, Bin: s.cfg.Bin, Err: ctx.Err()}
		case <-ticker.C:
			if st := s.Status(); matches(st.State) {
				return st, nil
			}
		}
	}
}

// settle sets the lifecycle state under the lock
func (s *Supervisor) settle(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// recordErr stores a background failure for observation via Status
func (s *Supervisor) recordErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}
