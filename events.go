package sidecar

import "sync"

// EventKind identifies the type of a sidecar event
type EventKind int

const (
	// EventUnknown represents an unrecognized event
	EventUnknown EventKind = iota
	// EventLog carries a line written by the sidecar to standard output
	EventLog
	// EventError carries a line written by the sidecar to standard error
	EventError
	// EventTerminated reports that the sidecar process exited
	EventTerminated
)

// Event kind string constants
const (
	eventUnknownStr    = "unknown"
	eventLogStr        = "log"
	eventErrorStr      = "error"
	eventTerminatedStr = "terminated"
)

// String returns the string representation of the event kind
func (k EventKind) String() string {
	switch k {
	case EventLog:
		return eventLogStr
	case EventError:
		return eventErrorStr
	case EventTerminated:
		return eventTerminatedStr
	default:
		return eventUnknownStr
	}
}

// Event is a discrete notification produced by the event bridge while
// draining a running sidecar's output streams and exit status.
type Event struct {
	// Kind identifies the event type
	Kind EventKind
	// Line is the output line for EventLog and EventError events
	Line string
	// ExitCode is the process exit code for EventTerminated events.
	// It is -1 when the process was killed by a signal.
	ExitCode int
}

// Broadcaster fans events out to registered subscribers. Delivery is
// fire-and-forget: each subscriber has a buffered channel and events are
// dropped for subscribers that fall behind rather than blocking the
// bridge. A Broadcaster outlives any single sidecar process, so
// subscriptions survive restarts.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	next   int
	buffer int
}

// NewBroadcaster creates a Broadcaster with the given per-subscriber
// channel capacity. A non-positive buffer falls back to DefaultEventBuffer.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	return &Broadcaster{
		subs:   make(map[int]chan Event),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber and returns its event channel
// along with a cancel function. The channel is closed when the
// subscription is cancelled.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, b.buffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Publish delivers an event to every current subscriber without blocking
func (b *Broadcaster) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
