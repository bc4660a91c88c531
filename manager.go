package sidecar

import (
	"context"
	"sync"
	"time"
)

// Manager handles operations on multiple supervisors concurrently.
// It provides bulk operations with configurable concurrency and timeouts
// for hosts that run more than one sidecar.
type Manager struct {
	// Concurrency is the maximum number of concurrent operations
	Concurrency int
	// Timeout is the per-operation timeout
	Timeout time.Duration

	mu   sync.Mutex
	sups map[string]*Supervisor
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithConcurrency sets the maximum number of concurrent operations
func WithConcurrency(n int) ManagerOption {
	return func(m *Manager) {
		m.Concurrency = n
	}
}

// WithTimeout sets the per-operation timeout
func WithTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.Timeout = d
	}
}

// NewManager creates a new Manager with default settings
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		Concurrency: 10,
		Timeout:     30 * time.Second,
		sups:        make(map[string]*Supervisor),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.Concurrency < 1 {
		m.Concurrency = 1
	}

	return m
}

// Add registers a supervisor under the given name, replacing any
// previous registration
func (m *Manager) Add(name string, s *Supervisor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sups[name] = s
}

// Get returns the supervisor registered under the given name
func (m *Manager) Get(name string) (*Supervisor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sups[name]
	return s, ok
}

// resolve maps names to registered supervisors; an empty name list means
// every registered supervisor
func (m *Manager) resolve(names []string) map[string]*Supervisor {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]*Supervisor, len(names))
	if len(names) == 0 {
		for name, s := range m.sups {
			out[name] = s
		}
		return out
	}
	for _, name := range names {
		if s, ok := m.sups[name]; ok {
			out[name] = s
		}
	}
	return out
}

func (m *Manager) execute(ctx context.Context, names []string, op func(context.Context, *Supervisor) error) error {
	targets := m.resolve(names)
	if len(targets) == 0 {
		return nil
	}

	// Semaphore for concurrency control
	sem := make(chan struct{}, m.Concurrency)

	var wg sync.WaitGroup
	var mu sync.Mutex
	merr := &MultiError{}

	for name, sup := range targets {
		wg.Add(1)
		go func(name string, sup *Supervisor) {
			defer wg.Done()

			// Acquire semaphore slot
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				merr.Add(ctx.Err())
				mu.Unlock()
				return
			}

			opCtx := ctx
			if m.Timeout > 0 {
				var cancel context.CancelFunc
				opCtx, cancel = context.WithTimeout(ctx, m.Timeout)
				defer cancel()
			}

			if err := op(opCtx, sup); err != nil {
				mu.Lock()
				merr.Add(err)
				mu.Unlock()
			}
		}(name, sup)
	}

	wg.Wait()

	return merr.Err()
}

// Start starts the named sidecars, or every registered sidecar when no
// names are given
func (m *Manager) Start(ctx context.Context, names ...string) error {
	return m.execute(ctx, names, func(ctx context.Context, s *Supervisor) error {
		_, err := s.Start(ctx)
		return err
	})
}

// Stop stops the named sidecars, or every registered sidecar when no
// names are given
func (m *Manager) Stop(ctx context.Context, names ...string) error {
	return m.execute(ctx, names, func(ctx context.Context, s *Supervisor) error {
		return s.Stop(ctx)
	})
}

// Status retrieves status snapshots for the named sidecars, or every
// registered sidecar when no names are given
func (m *Manager) Status(_ context.Context, names ...string) map[string]Status {
	targets := m.resolve(names)

	results := make(map[string]Status, len(targets))
	for name, sup := range targets {
		results[name] = sup.Status()
	}
	return results
}
