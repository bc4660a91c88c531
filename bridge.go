package sidecar

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os/exec"

	"vawter.tech/stopper"
)

// maxLineBytes caps the length of a single sidecar output line
const maxLineBytes = 1024 * 1024

// attach starts the event bridge for a freshly spawned process: one
// drain task per output stream, plus a waiter that collects the exit
// status once both streams hit EOF. The waiter is the only writer that
// can move the supervisor to stopped without a caller-initiated Stop,
// and it does so under the same lock as Start and Stop.
func (s *Supervisor) attach(cmd *exec.Cmd, stdout, stderr io.Reader, done chan struct{}) {
	sctx := stopper.WithContext(context.Background())

	sctx.Go(func(_ *stopper.Context) error {
		s.drain(stdout, EventLog)
		return nil
	})
	sctx.Go(func(_ *stopper.Context) error {
		s.drain(stderr, EventError)
		return nil
	})

	go func() {
		// Both streams reach EOF when the process exits. The drain
		// tasks ignore the stop signal, so Wait returns once the pipes
		// are fully drained and not before.
		sctx.Stop(s.StopGrace)
		_ = sctx.Wait()

		werr := cmd.Wait()
		code := exitCode(werr)
		s.bc.Publish(Event{Kind: EventTerminated, ExitCode: code})

		s.mu.Lock()
		if s.cmd == cmd {
			s.cmd = nil
			s.state = StateStopped
		}
		s.lastExit = code
		s.mu.Unlock()
		s.persist()

		close(done)
	}()
}

// drain reads line-delimited output and publishes one event per line.
// Read failures are recorded, never propagated; the bridge has no caller
// to report to.
func (s *Supervisor) drain(r io.Reader, kind EventKind) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		s.bc.Publish(Event{Kind: kind, Line: sc.Text()})
	}
	if err := sc.Err(); err != nil {
		s.recordErr(err)
	}
}

// exitCode maps a Wait error to the process exit code, with -1 for
// signal deaths and unknown failures.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}
