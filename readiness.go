package sidecar

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fsnotify/fsnotify"
)

// awaitReady blocks until the freshly spawned sidecar is considered
// usable. The default is a bounded TCP dial loop against the assigned
// port; WithReadyFile switches to watching for a file the sidecar
// creates, and WithReadyDelay falls back to a blind sleep.
func (s *Supervisor) awaitReady(ctx context.Context, port uint16) error {
	switch {
	case s.ReadyFile != "":
		return s.awaitFile(ctx, s.ReadyFile)
	case s.ReadyDelay > 0:
		select {
		case <-time.After(s.ReadyDelay):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	default:
		return s.awaitDial(ctx, port)
	}
}

// awaitDial retries a local TCP dial until the sidecar accepts a
// connection or the readiness timeout elapses
func (s *Supervisor) awaitDial(ctx context.Context, port uint16) error {
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(int(port)))
	deadline := time.Now().Add(s.ReadyTimeout)

	for {
		conn, err := net.DialTimeout("tcp", addr, s.ReadyInterval)
		if err == nil {
			_ = conn.Close()
			return nil
		}

		// The bridge moves the state off running if the process dies
		// during the wait; no point dialing a dead sidecar.
		if s.Status().State != StateRunning {
			return fmt.Errorf("%w: process exited during readiness wait", ErrNotReady)
		}

		if time.Now().After(deadline) {
			return ErrNotReady
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.ReadyInterval):
		}
	}
}

// awaitFile waits for the sidecar to create the ready file, watching its
// parent directory for changes
func (s *Supervisor) awaitFile(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("%w: %v", ErrNotReady, err)
	}

	// The file may already exist by the time the watch is in place
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	timeout := time.After(s.ReadyTimeout)
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return ErrNotReady
			}
			if filepath.Clean(ev.Name) == filepath.Clean(path) && ev.Op.Has(fsnotify.Create|fsnotify.Write) {
				return nil
			}

		case werr, ok := <-watcher.Errors:
			if ok && werr != nil {
				s.recordErr(werr)
			}

		case <-timeout:
			return ErrNotReady

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
