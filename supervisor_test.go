//go:build linux || darwin

package sidecar

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartIdempotent(t *testing.T) {
	script := writeScript(t, t.TempDir(), "backend", "sleep 30")
	sup := newTestSupervisor(t, script, WithReadyDelay(20*time.Millisecond))
	ctx := context.Background()

	port1, err := sup.Start(ctx)
	require.NoError(t, err)
	require.NotZero(t, port1)

	st := sup.Status()
	require.True(t, st.Running)
	require.NotZero(t, st.PID)
	pid := st.PID

	// A second start against a running supervisor is a no-op that
	// reports the original port
	port2, err := sup.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, port1, port2)
	assert.Equal(t, pid, sup.Status().PID, "second start must not respawn")
}

func TestStopWhenNeverStarted(t *testing.T) {
	script := writeScript(t, t.TempDir(), "backend", "sleep 30")
	sup := newTestSupervisor(t, script)

	require.NoError(t, sup.Stop(context.Background()))
	assert.False(t, sup.Status().Running)

	// Stop stays a no-op on repeat
	require.NoError(t, sup.Stop(context.Background()))
}

func TestStartStopCycle(t *testing.T) {
	script := writeScript(t, t.TempDir(), "backend", "sleep 30")
	sup := newTestSupervisor(t, script, WithReadyDelay(20*time.Millisecond))
	ctx := context.Background()

	port, err := sup.Start(ctx)
	require.NoError(t, err)
	require.True(t, sup.Status().Running)

	require.NoError(t, sup.Stop(ctx))
	st := sup.Status()
	assert.False(t, st.Running)
	assert.Equal(t, StateStopped, st.State)
	assert.Equal(t, port, st.Port, "last-known port survives stop")
	assert.Zero(t, st.PID)
}

func TestUnsolicitedExit(t *testing.T) {
	script := writeScript(t, t.TempDir(), "backend", "exit 1")
	sup := newTestSupervisor(t, script, WithReadyDelay(10*time.Millisecond))
	ctx := context.Background()

	events, cancel := sup.Subscribe()
	defer cancel()

	_, err := sup.Start(ctx)
	require.NoError(t, err)

	waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
	defer waitCancel()
	st, err := sup.Wait(waitCtx, []State{StateStopped})
	require.NoError(t, err)
	assert.False(t, st.Running)
	assert.Equal(t, 1, st.LastExit)

	var first Event
	deadline := time.After(2 * time.Second)
	for found := false; !found; {
		select {
		case ev := <-events:
			if ev.Kind == EventTerminated {
				first = ev
				found = true
			}
		case <-deadline:
			t.Fatal("no terminated event received")
		}
	}
	assert.Equal(t, 1, first.ExitCode)

	// No second terminated event may follow
	quiet := time.After(200 * time.Millisecond)
	for {
		select {
		case ev := <-events:
			require.NotEqual(t, EventTerminated, ev.Kind, "duplicate terminated event")
		case <-quiet:
			return
		}
	}
}

func TestConcurrentStartSpawnsOnce(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "spawns")
	script := writeScript(t, dir, "backend", "echo started >> "+marker+"\nsleep 30")
	sup := newTestSupervisor(t, script, WithReadyDelay(50*time.Millisecond))
	ctx := context.Background()

	const n = 8
	ports := make([]uint16, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ports[i], errs[i] = sup.Start(ctx)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i], "caller %d", i)
		assert.Equal(t, ports[0], ports[i], "caller %d saw a different port", i)
	}

	// The fake sidecar appends one line per spawn
	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	lines := strings.Count(string(data), "\n")
	assert.Equal(t, 1, lines, "exactly one process spawned")
}

func TestEventsLogAndError(t *testing.T) {
	script := writeScript(t, t.TempDir(), "backend",
		"echo hello-out\necho hello-err 1>&2\nsleep 30")
	sup := newTestSupervisor(t, script, WithReadyDelay(10*time.Millisecond))

	events, cancel := sup.Subscribe()
	defer cancel()

	_, err := sup.Start(context.Background())
	require.NoError(t, err)

	var gotLog, gotErr bool
	deadline := time.After(5 * time.Second)
	for !(gotLog && gotErr) {
		select {
		case ev := <-events:
			switch {
			case ev.Kind == EventLog && ev.Line == "hello-out":
				gotLog = true
			case ev.Kind == EventError && ev.Line == "hello-err":
				gotErr = true
			}
		case <-deadline:
			t.Fatalf("timed out: log=%v err=%v", gotLog, gotErr)
		}
	}
}

func TestReadyFile(t *testing.T) {
	dir := t.TempDir()
	ready := filepath.Join(dir, "ready")
	script := writeScript(t, dir, "backend", "touch "+ready+"\nsleep 30")
	sup := newTestSupervisor(t, script,
		WithReadyFile(ready),
		WithReadyTimeout(5*time.Second),
	)

	_, err := sup.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, sup.Status().Running)
}

func TestReadinessTimeout(t *testing.T) {
	// The fake sidecar never binds its port, so the dial probe must
	// give up and tear the process down
	script := writeScript(t, t.TempDir(), "backend", "sleep 30")
	sup := newTestSupervisor(t, script,
		WithReadyTimeout(300*time.Millisecond),
		WithReadyInterval(50*time.Millisecond),
	)

	_, err := sup.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotReady)
	assert.False(t, sup.Status().Running)
}

func TestSpawnFailure(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	sup := newTestSupervisor(t, missing)
	ctx := context.Background()

	_, err := sup.Start(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSpawn)

	st := sup.Status()
	assert.False(t, st.Running)
	assert.Equal(t, StateStopped, st.State)

	// The supervisor stays usable after a failed attempt
	_, err = sup.Start(ctx)
	assert.ErrorIs(t, err, ErrSpawn)
}

func TestRestartAfterCrash(t *testing.T) {
	dir := t.TempDir()
	gate := filepath.Join(dir, "gate")
	// First run exits immediately; once the gate file exists the
	// sidecar stays up
	script := writeScript(t, dir, "backend",
		"if [ -e "+gate+" ]; then sleep 30; else exit 3; fi")
	sup := newTestSupervisor(t, script, WithReadyDelay(10*time.Millisecond))
	ctx := context.Background()

	_, err := sup.Start(ctx)
	require.NoError(t, err)

	waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
	defer waitCancel()
	st, err := sup.Wait(waitCtx, []State{StateStopped})
	require.NoError(t, err)
	assert.Equal(t, 3, st.LastExit)

	require.NoError(t, os.WriteFile(gate, nil, 0o644))

	_, err = sup.Start(ctx)
	require.NoError(t, err)
	assert.True(t, sup.Status().Running)
}

func TestStateFilePersistence(t *testing.T) {
	dir := t.TempDir()
	stateFile := filepath.Join(dir, "backend.state")
	script := writeScript(t, dir, "backend", "sleep 30")
	sup := newTestSupervisor(t, script,
		WithReadyDelay(20*time.Millisecond),
		WithStateFile(stateFile),
	)
	ctx := context.Background()

	port, err := sup.Start(ctx)
	require.NoError(t, err)

	rec, err := LoadStateRecord(stateFile)
	require.NoError(t, err)
	assert.True(t, rec.Running)
	assert.Equal(t, port, rec.Port)
	assert.NotZero(t, rec.PID)

	require.NoError(t, sup.Stop(ctx))

	rec, err = LoadStateRecord(stateFile)
	require.NoError(t, err)
	assert.False(t, rec.Running)
	assert.Equal(t, port, rec.Port)
}

func TestWaitForState(t *testing.T) {
	script := writeScript(t, t.TempDir(), "backend", "sleep 30")
	sup := newTestSupervisor(t, script, WithReadyDelay(20*time.Millisecond))
	ctx := context.Background()

	go func() {
		_, _ = sup.Start(ctx)
	}()

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	st, err := sup.Wait(waitCtx, []State{StateRunning})
	require.NoError(t, err)
	assert.Equal(t, StateRunning, st.State)

	require.NoError(t, sup.Stop(ctx))
	st, err = sup.Wait(waitCtx, []State{StateStopped})
	require.NoError(t, err)
	assert.Equal(t, StateStopped, st.State)
}

func TestWaitCancelled(t *testing.T) {
	script := writeScript(t, t.TempDir(), "backend", "sleep 30")
	sup := newTestSupervisor(t, script)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := sup.Wait(ctx, []State{StateRunning})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCommandsLifecycle(t *testing.T) {
	script := writeScript(t, t.TempDir(), "backend", "sleep 30")
	sup := newTestSupervisor(t, script, WithReadyDelay(20*time.Millisecond))
	cmds := NewCommands(sup, nil)
	ctx := context.Background()

	port, err := cmds.StartBackend(ctx)
	require.NoError(t, err)

	st, err := cmds.GetBackendStatus(ctx)
	require.NoError(t, err)
	assert.True(t, st.Running)
	assert.Equal(t, port, st.Port)

	require.NoError(t, cmds.StopBackend(ctx))

	st, err = cmds.GetBackendStatus(ctx)
	require.NoError(t, err)
	assert.False(t, st.Running)
	assert.Equal(t, port, st.Port)
}
