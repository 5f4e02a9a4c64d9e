// Package connectivity tracks whether the terminal currently has network
// reachability. The monitor reflects platform signals as-is: no retries
// or backoff of its own. A false "online" reading that later fails a
// request degrades gracefully through the submission path's queue
// fallback.
package connectivity

import (
	"log/slog"
	"sync"
)

// Monitor holds the process-wide connectivity flag and notifies
// subscribers on transitions. The flag is mutated only by transition
// events (Set), never polled destructively.
//
// Thread-safety: all methods are safe for concurrent use.
type Monitor struct {
	mu          sync.Mutex
	online      bool
	subscribers []func(online bool)
}

// NewMonitor creates a monitor initialized from the platform's current
// reachability signal.
func NewMonitor(initialOnline bool) *Monitor {
	return &Monitor{online: initialOnline}
}

// IsOnline returns the current connectivity flag.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers a callback invoked on every online/offline
// transition. Callbacks run on their own goroutine so a slow subscriber
// (e.g. a sync attempt on recovery) never blocks the signal source.
func (m *Monitor) Subscribe(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

// Set records a transition event. A call that does not change the flag
// is a no-op: subscribers only see genuine transitions.
func (m *Monitor) Set(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subscribers := make([]func(bool), len(m.subscribers))
	copy(subscribers, m.subscribers)
	m.mu.Unlock()

	slog.Info("connectivity transition", "online", online)
	for _, fn := range subscribers {
		go fn(online)
	}
}
