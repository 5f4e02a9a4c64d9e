// Package syncer drains the durable action queue against the gateway,
// keeping local and remote state convergent. Cycles are triggered by a
// fixed-interval timer and by connectivity recovery; a single-flight
// guard ensures at most one cycle executes at a time.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/crewclock/kiosk/internal/connectivity"
	"github.com/crewclock/kiosk/internal/gateway"
	"github.com/crewclock/kiosk/internal/queue"
)

// DefaultInterval is the fixed timer cadence between sync cycles.
const DefaultInterval = 30 * time.Second

// ErrSyncInFlight indicates a cycle was requested while one was already
// running. The request is dropped, not queued: the running cycle will
// drain everything that is pending.
var ErrSyncInFlight = errors.New("sync cycle already in flight")

// Stats summarizes one sync cycle.
type Stats struct {
	Attempted int // actions sent in the batch
	Synced    int // actions confirmed and removed
	Remaining int // actions left queued for a later cycle
}

// Engine reconciles the pending queue with the gateway.
//
// Concurrency: the timer and the connectivity-recovery trigger fire
// independently. The in-flight mutex is acquired with TryLock before any
// asynchronous work begins and released in a defer, so it is held for
// the full cycle and released on every exit path. This is the single
// concurrency-control primitive in the system and is load-bearing:
// without it, duplicate submissions of the same queued action become
// likely.
type Engine struct {
	store    *queue.Store
	gw       gateway.Gateway
	tokens   gateway.TokenSource
	monitor  *connectivity.Monitor
	interval time.Duration

	inFlight sync.Mutex
}

// New creates a sync engine and registers the connectivity-recovery
// trigger: a transition to online starts (without blocking the monitor)
// an immediate cycle.
func New(store *queue.Store, gw gateway.Gateway, tokens gateway.TokenSource, monitor *connectivity.Monitor, interval time.Duration) *Engine {
	if interval <= 0 {
		interval = DefaultInterval
	}
	e := &Engine{
		store:    store,
		gw:       gw,
		tokens:   tokens,
		monitor:  monitor,
		interval: interval,
	}
	monitor.Subscribe(func(online bool) {
		if !online {
			return
		}
		if _, err := e.Sync(context.Background()); err != nil && !errors.Is(err, ErrSyncInFlight) {
			slog.Warn("recovery sync failed", "error", err)
		}
	})
	return e
}

// Run executes a cycle on the fixed interval until the context is
// cancelled.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sync engine stopping")
			return ctx.Err()
		case <-ticker.C:
			if _, err := e.Sync(ctx); err != nil && !errors.Is(err, ErrSyncInFlight) {
				slog.Warn("periodic sync failed", "error", err)
			}
		}
	}
}

// Sync executes one drain-and-reconcile cycle:
//
//  1. Return immediately if a cycle is already in flight.
//  2. Read all queued actions; nothing to do when empty.
//  3. Return without touching the queue when offline or no credential
//     is held (retry on next trigger).
//  4. Submit the full batch in one request.
//  5. Remove each confirmed id; failed items stay queued silently for a
//     later cycle (only the aggregate pending count is surfaced).
func (e *Engine) Sync(ctx context.Context) (Stats, error) {
	if !e.inFlight.TryLock() {
		return Stats{}, ErrSyncInFlight
	}
	defer e.inFlight.Unlock()

	actions, err := e.store.ListAll(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("read pending actions: %w", err)
	}
	if len(actions) == 0 {
		return Stats{}, nil
	}

	if !e.monitor.IsOnline() {
		slog.Debug("sync skipped: offline", "pending", len(actions))
		return Stats{Remaining: len(actions)}, nil
	}

	if _, err := e.tokens.Token(ctx); err != nil {
		slog.Debug("sync skipped: no credential", "pending", len(actions))
		return Stats{Remaining: len(actions)}, nil
	}

	slog.Info("sync cycle starting", "pending", len(actions))

	result, err := e.gw.SyncBatch(ctx, actions)
	if err != nil {
		// Batch-level failure leaves everything queued. A mid-request
		// connectivity loss shows up here as a network error.
		return Stats{Attempted: len(actions), Remaining: len(actions)},
			fmt.Errorf("sync batch: %w", err)
	}

	stats := Stats{Attempted: len(actions)}
	for _, item := range result.Results {
		if !item.Success {
			slog.Debug("action not accepted, retrying next cycle",
				"id", item.ID,
				"error", item.Error,
			)
			continue
		}
		if err := e.store.Remove(ctx, item.ID); err != nil {
			// The server accepted it; a failed removal means the id is
			// resent next cycle and deduplicated remotely.
			slog.Error("failed to remove confirmed action", "id", item.ID, "error", err)
			continue
		}
		stats.Synced++
	}
	stats.Remaining = stats.Attempted - stats.Synced

	slog.Info("sync cycle complete",
		"attempted", stats.Attempted,
		"synced", stats.Synced,
		"remaining", stats.Remaining,
	)

	return stats, nil
}
