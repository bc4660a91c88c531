// Package sidecar provides an embeddable supervisor for a single
// long-running auxiliary process launched by a host application.
//
// The core functionality centers around the Supervisor type, which
// launches the sidecar with a negotiated TCP port, keeps a consistent
// running/stopped view of it under concurrent access, and streams its
// output as discrete events to subscribers:
//
//	cfg := sidecar.NewConfig("/opt/app/backend")
//	sup, err := sidecar.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Start the sidecar; returns the port it was given
//	port, err := sup.Start(context.Background())
//
//	// Observe its state
//	st := sup.Status()
//	fmt.Printf("running=%v port=%d\n", st.Running, st.Port)
//
// # Events
//
// Every line the sidecar writes to standard output or standard error,
// and its eventual exit, is published to subscribers through a fan-out
// broadcaster. Delivery is fire-and-forget; a subscriber that falls
// behind loses events rather than blocking the bridge:
//
//	events, cancel := sup.Subscribe()
//	defer cancel()
//	for ev := range events {
//	    switch ev.Kind {
//	    case sidecar.EventLog:
//	        fmt.Println("out:", ev.Line)
//	    case sidecar.EventTerminated:
//	        fmt.Println("exit code:", ev.ExitCode)
//	    }
//	}
//
// # Manager for Multiple Sidecars
//
// The Manager type is provided as a convenience for hosts that run
// several sidecars. It offers bulk start/stop/status with configurable
// concurrency. If your application manages a single sidecar, you do not
// need it; the Supervisor provides all core functionality.
//
// # Design Philosophy
//
// This library prioritizes:
//
//   - One mutex around all shared lifecycle state; Start, Stop, and the
//     bridge's exit write-back serialize through it
//   - No I/O while the lock is held, so status queries never block on a
//     slow spawn or kill
//   - A single spawn under concurrent starts: the first caller claims
//     the transition, the rest join its outcome
//   - Explicit readiness: a bounded probe loop rather than an unbounded
//     or blind wait
//   - Background failures surfaced through Status rather than crashing
//     the bridge, which has no caller to report to
package sidecar
