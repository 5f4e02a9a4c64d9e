// Package session holds the ephemeral worker session: the currently
// identified worker, their status, and the transition guards deciding
// which actions the terminal may request. Nothing here is persisted;
// authoritative status comes from the gateway at validation time and is
// advanced optimistically after an accepted action.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/crewclock/kiosk/internal/action"
)

// ErrNoWorker indicates an action was requested with no identified worker.
var ErrNoWorker = errors.New("no worker identified at terminal")

// Worker is the identified worker bound to the current session.
type Worker struct {
	Name        string
	WorkerID    string
	CodeID      string
	Code        string
	Status      action.Status
	ClockedInAt *time.Time
}

// Session is the shared terminal's single active worker session.
//
// Thread-safety: all methods are safe for concurrent use. The status
// endpoint reads snapshots while the kiosk loop mutates.
type Session struct {
	mu        sync.Mutex
	worker    *Worker
	lastTouch time.Time
	clock     action.Clock
}

// New creates an empty session (code-entry state).
func New(clock action.Clock) *Session {
	return &Session{clock: clock}
}

// Begin binds a validated worker to the terminal and starts the
// inactivity window. Replaces any previous session.
func (s *Session) Begin(w Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	worker := w
	s.worker = &worker
	s.lastTouch = s.clock.Now()
}

// Current returns a snapshot of the active worker, if any.
func (s *Session) Current() (Worker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.worker == nil {
		return Worker{}, false
	}
	return *s.worker, true
}

// Active reports whether a worker is currently identified.
func (s *Session) Active() bool {
	_, ok := s.Current()
	return ok
}

// Guard checks that the requested action is legal for the current worker
// status. Rejection happens before any network or queue interaction.
func (s *Session) Guard(t action.Type) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.worker == nil {
		return ErrNoWorker
	}
	if _, err := s.worker.Status.Next(t); err != nil {
		return err
	}
	return nil
}

// Advance optimistically moves the status forward after an action was
// accepted locally (submitted or queued), so the terminal does not wait
// for server confirmation. A completed clock-out destroys the session
// and returns the terminal to code entry.
//
// There is no rollback for a long-queued, repeatedly failing action; the
// next successful validation refreshes the status authoritatively.
func (s *Session) Advance(t action.Type) (action.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.worker == nil {
		return "", ErrNoWorker
	}

	next, err := s.worker.Status.Next(t)
	if err != nil {
		return "", err
	}

	if t == action.TypeClockOut {
		slog.Debug("session closed after clock-out", "worker", s.worker.WorkerID)
		s.worker = nil
		return next, nil
	}

	s.worker.Status = next
	if t == action.TypeClockIn && s.worker.ClockedInAt == nil {
		now := s.clock.Now()
		s.worker.ClockedInAt = &now
	}
	s.lastTouch = s.clock.Now()
	return next, nil
}

// Reset manually returns the terminal to code entry, discarding any
// active session. An in-flight request's late result is simply never
// bound to state after this point.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.worker = nil
}

// Touch records worker interaction (pointer or key event) and restarts
// the inactivity window.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastTouch = s.clock.Now()
}

// IdleFor returns how long the session has been without interaction.
// Zero when no session is active.
func (s *Session) IdleFor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.worker == nil {
		return 0
	}
	return s.clock.Now().Sub(s.lastTouch)
}

// WatchInactivity resets the terminal to code entry after timeout with no
// interaction while a session is active. Runs until the context is
// cancelled; polls at a fraction of the timeout so a reset lands within
// a quarter-timeout of the deadline.
func (s *Session) WatchInactivity(ctx context.Context, timeout time.Duration) error {
	interval := timeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if idle := s.IdleFor(); idle >= timeout {
				slog.Info("session reset after inactivity", "idle", idle)
				s.Reset()
			}
		}
	}
}
