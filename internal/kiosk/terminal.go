// Package kiosk wires the terminal-facing action pipeline: code
// validation with deterministic offline refusal, the guarded
// request-action path with its universal queue fallback, the clock-out
// attestation flow, and heartbeat scheduling.
package kiosk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/crewclock/kiosk/internal/action"
	"github.com/crewclock/kiosk/internal/connectivity"
	"github.com/crewclock/kiosk/internal/gateway"
	"github.com/crewclock/kiosk/internal/queue"
	"github.com/crewclock/kiosk/internal/session"
)

// ErrOfflineValidation is returned when a code validation is requested
// while offline. Validation requires connectivity; the terminal refuses
// deterministically instead of attempting and failing.
var ErrOfflineValidation = errors.New("cannot validate code while offline")

// ErrAttestationCancelled is returned when the worker backs out of the
// clock-out attestation. No action is produced; prior status is kept.
var ErrAttestationCancelled = errors.New("attestation cancelled")

// DefaultHeartbeatInterval is the cadence of the fire-and-forget
// presence heartbeat.
const DefaultHeartbeatInterval = 60 * time.Second

// Confirmation is what the terminal shows the worker after an accepted
// action. Queued marks the "(queued offline)" success-toned variant:
// delayed-but-safe delivery is absorbed, never escalated.
type Confirmation struct {
	Label  string
	Queued bool
	Status action.Status
}

// Terminal is the kiosk orchestrator.
type Terminal struct {
	session *session.Session
	store   *queue.Store
	gw      gateway.Gateway
	monitor *connectivity.Monitor
	clock   action.Clock
	ids     action.TokenGenerator
	eventID string
}

// New creates a terminal bound to the active event context.
func New(
	sess *session.Session,
	store *queue.Store,
	gw gateway.Gateway,
	monitor *connectivity.Monitor,
	clock action.Clock,
	ids action.TokenGenerator,
	eventID string,
) *Terminal {
	return &Terminal{
		session: sess,
		store:   store,
		gw:      gw,
		monitor: monitor,
		clock:   clock,
		ids:     ids,
		eventID: eventID,
	}
}

// Validate identifies a worker from raw code input and binds a session.
//
// Offline validation is refused deterministically with
// ErrOfflineValidation before any network call. Format errors
// (*action.CodeError) and gateway rejections (*gateway.ValidationError)
// are recoverable and mutate nothing.
func (t *Terminal) Validate(ctx context.Context, rawCode string) (session.Worker, error) {
	t.session.Touch()

	code, err := action.ParseCode(rawCode)
	if err != nil {
		return session.Worker{}, err
	}

	if !t.monitor.IsOnline() {
		return session.Worker{}, ErrOfflineValidation
	}

	result, err := t.gw.Validate(ctx, code)
	if err != nil {
		return session.Worker{}, err
	}

	worker := session.Worker{
		Name:        result.Name,
		WorkerID:    result.WorkerID,
		CodeID:      result.CodeID,
		Code:        code,
		Status:      result.Status,
		ClockedInAt: result.ClockedInAt,
	}
	t.session.Begin(worker)

	slog.Info("worker identified",
		"worker", worker.WorkerID,
		"status", worker.Status,
	)
	return worker, nil
}

// RequestAction records a clock-in or meal action for the identified
// worker. Clock-out must go through ClockOut, which gates it behind the
// attestation subflow.
func (t *Terminal) RequestAction(ctx context.Context, kind action.Type) (Confirmation, error) {
	if kind == action.TypeClockOut {
		return Confirmation{}, fmt.Errorf("clock-out requires the attestation flow")
	}
	return t.record(ctx, kind, session.Attestation{})
}

// BeginClockOut opens the attestation subflow, returning the best-effort
// shift summary for display. A nil summary (offline, or fetch failure)
// degrades to placeholder display and never blocks attestation.
func (t *Terminal) BeginClockOut(ctx context.Context) (*gateway.ShiftSummary, error) {
	t.session.Touch()

	if err := t.session.Guard(action.TypeClockOut); err != nil {
		return nil, err
	}

	worker, ok := t.session.Current()
	if !ok {
		return nil, session.ErrNoWorker
	}

	if !t.monitor.IsOnline() {
		return nil, nil
	}
	summary, err := t.gw.ShiftSummary(ctx, worker.WorkerID)
	if err != nil {
		slog.Debug("shift summary unavailable", "error", err)
		return nil, nil
	}
	return summary, nil
}

// ClockOut completes the clock-out with a finished attestation.
// Cancel returns ErrAttestationCancelled and produces no action.
func (t *Terminal) ClockOut(ctx context.Context, att session.Attestation) (Confirmation, error) {
	if att.Outcome == session.AttestationCancelled {
		return Confirmation{}, ErrAttestationCancelled
	}
	return t.record(ctx, action.TypeClockOut, att)
}

// record is the single request-action path: guard, build the action
// stamped at intent time, submit or queue, then advance optimistically.
func (t *Terminal) record(ctx context.Context, kind action.Type, att session.Attestation) (Confirmation, error) {
	t.session.Touch()

	if err := t.session.Guard(kind); err != nil {
		return Confirmation{}, err
	}

	worker, ok := t.session.Current()
	if !ok {
		return Confirmation{}, session.ErrNoWorker
	}

	a := action.QueuedAction{
		ID:        t.ids.Generate(),
		Code:      worker.Code,
		Action:    kind,
		Timestamp: t.clock.Now(),
		EventID:   t.eventID,
	}

	if kind == action.TypeClockOut {
		applied, err := att.Apply(&a)
		if err != nil {
			return Confirmation{}, err
		}
		if !applied {
			return Confirmation{}, ErrAttestationCancelled
		}
	}

	queued, err := t.submitOrQueue(ctx, a)
	if err != nil {
		// Only a failed durable write reaches here: the last line of
		// defense against data loss, surfaced to the worker.
		return Confirmation{}, err
	}

	status, err := t.session.Advance(kind)
	if err != nil {
		return Confirmation{}, err
	}

	attested := a.AttestationAccepted == nil || *a.AttestationAccepted
	label := kind.Label(attested)
	if queued {
		label += " (queued offline)"
	}

	slog.Info("action recorded",
		"id", a.ID,
		"action", kind,
		"worker", worker.WorkerID,
		"queued", queued,
	)

	return Confirmation{Label: label, Queued: queued, Status: status}, nil
}

// submitOrQueue tries the direct online path and falls back to the
// durable queue on any submission failure, including a connectivity loss
// discovered mid-request. Offline queueing is the universal fallback.
// Returns queued=true when the action went to the queue.
func (t *Terminal) submitOrQueue(ctx context.Context, a action.QueuedAction) (bool, error) {
	if t.monitor.IsOnline() {
		err := t.gw.Submit(ctx, a)
		if err == nil {
			return false, nil
		}
		slog.Warn("direct submit failed, queueing",
			"id", a.ID,
			"action", a.Action,
			"error", err,
		)
		if gateway.IsNetworkError(err) {
			// The request itself discovered the loss; record it.
			t.monitor.Set(false)
		}
	}

	if err := t.store.Enqueue(ctx, a); err != nil {
		return false, err
	}
	return true, nil
}

// PendingCount returns the aggregate pending indicator for the terminal.
func (t *Terminal) PendingCount(ctx context.Context) (int, error) {
	return t.store.Count(ctx)
}

// Reset manually returns the terminal to code entry.
func (t *Terminal) Reset() {
	t.session.Reset()
}

// RunHeartbeat sends the fire-and-forget presence heartbeat on a fixed
// interval while online, until the context is cancelled.
func (t *Terminal) RunHeartbeat(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if t.monitor.IsOnline() {
				t.gw.Heartbeat(ctx, t.eventID)
			}
		}
	}
}
