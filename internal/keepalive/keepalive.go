// Package keepalive maintains the authentication credential used by all
// gateway calls. It refreshes periodically and on the terminal regaining
// foreground visibility. A failed refresh is non-fatal locally; it will
// surface as a submission or validation failure on next use and route
// through the normal error paths.
package keepalive

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/crewclock/kiosk/internal/action"
	"github.com/crewclock/kiosk/internal/gateway"
)

// DefaultInterval is the fixed refresh cadence.
const DefaultInterval = 5 * time.Minute

// Authenticator is the external auth collaborator. Identity and session
// issuance live outside this repository; only the refresh contract is
// depended on here.
type Authenticator interface {
	Refresh(ctx context.Context) (token string, expiresAt time.Time, err error)
}

// Refresher holds the current credential and keeps it fresh. It is the
// production gateway.TokenSource.
type Refresher struct {
	auth  Authenticator
	clock action.Clock

	mu        sync.Mutex
	token     string
	expiresAt time.Time

	// poke wakes the run loop for an immediate refresh (visibility
	// regained). Buffered size 1: concurrent pokes coalesce.
	poke chan struct{}
}

// NewRefresher creates a refresher with no credential held. The first
// Run tick (or Poke) acquires one.
func NewRefresher(auth Authenticator, clock action.Clock) *Refresher {
	return &Refresher{
		auth:  auth,
		clock: clock,
		poke:  make(chan struct{}, 1),
	}
}

// Token returns the held credential, or gateway.ErrNoCredential when none
// is held or the held one has expired.
func (r *Refresher) Token(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.token == "" {
		return "", gateway.ErrNoCredential
	}
	if !r.expiresAt.IsZero() && !r.clock.Now().Before(r.expiresAt) {
		return "", gateway.ErrNoCredential
	}
	return r.token, nil
}

// Poke requests an immediate refresh, used when the terminal regains
// foreground visibility. Non-blocking; concurrent pokes coalesce.
func (r *Refresher) Poke() {
	select {
	case r.poke <- struct{}{}:
	default:
	}
}

// Run refreshes immediately, then on a fixed interval and on every poke,
// until the context is cancelled.
func (r *Refresher) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}

	r.refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("keepalive stopping")
			return ctx.Err()
		case <-ticker.C:
			r.refresh(ctx)
		case <-r.poke:
			r.refresh(ctx)
		}
	}
}

// refresh replaces the held credential. Failure keeps the previous
// credential (it may still be valid) and is logged, not escalated.
func (r *Refresher) refresh(ctx context.Context) {
	token, expiresAt, err := r.auth.Refresh(ctx)
	if err != nil {
		slog.Warn("credential refresh failed", "error", err)
		return
	}

	r.mu.Lock()
	r.token = token
	r.expiresAt = expiresAt
	r.mu.Unlock()

	slog.Debug("credential refreshed", "expires_at", expiresAt)
}
