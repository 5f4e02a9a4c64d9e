package queue

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/crewclock/kiosk/internal/action"
)

// Enqueue durably persists a pending action.
//
// The write uses ON CONFLICT(id) DO NOTHING: the id is the idempotency
// token, so re-enqueueing the same action (e.g. a retried fallback path)
// is a no-op rather than an error.
//
// Enqueue must return before the caller reports success to the worker.
// With synchronous = FULL, a nil return means the row survives power loss.
func (s *Store) Enqueue(ctx context.Context, a action.QueuedAction) error {
	if err := a.Validate(); err != nil {
		return &StorageError{Op: "enqueue", ActionID: a.ID, Err: err}
	}

	var attested sql.NullInt64
	if a.AttestationAccepted != nil {
		attested.Valid = true
		if *a.AttestationAccepted {
			attested.Int64 = 1
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_actions
		(id, code, action, timestamp, signature, attestation_accepted, event_id, enqueued_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		a.ID,
		a.Code,
		string(a.Action),
		a.Timestamp.UTC().Format(time.RFC3339Nano),
		a.Signature,
		attested,
		a.EventID,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return &StorageError{Op: "enqueue", ActionID: a.ID, Err: err}
	}

	return nil
}

// ListAll returns every pending action in intent-timestamp order.
func (s *Store) ListAll(ctx context.Context) ([]action.QueuedAction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, action, timestamp, signature, attestation_accepted, event_id
		FROM pending_actions
		ORDER BY timestamp ASC, id ASC
	`)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	defer rows.Close()

	var actions []action.QueuedAction
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, &StorageError{Op: "list", Err: err}
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}

	return actions, nil
}

// Remove deletes a pending action after confirmed remote acceptance.
// Idempotent: removing an already-absent id is not an error.
func (s *Store) Remove(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_actions WHERE id = ?`, id); err != nil {
		return &StorageError{Op: "remove", ActionID: id, Err: err}
	}
	return nil
}

// Clear deletes every pending action. Administrative/testing operation.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_actions`); err != nil {
		return &StorageError{Op: "clear", Err: err}
	}
	return nil
}

// Count returns the number of pending actions. Drives the aggregate
// pending indicator shown at the terminal.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_actions`).Scan(&n); err != nil {
		return 0, &StorageError{Op: "count", Err: err}
	}
	return n, nil
}

// scanAction reads one pending_actions row into a QueuedAction.
func scanAction(rows *sql.Rows) (action.QueuedAction, error) {
	var (
		a        action.QueuedAction
		kind     string
		ts       string
		attested sql.NullInt64
	)
	if err := rows.Scan(&a.ID, &a.Code, &kind, &ts, &a.Signature, &attested, &a.EventID); err != nil {
		return action.QueuedAction{}, fmt.Errorf("scan row: %w", err)
	}

	a.Action = action.Type(kind)

	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return action.QueuedAction{}, fmt.Errorf("parse timestamp for %s: %w", a.ID, err)
	}
	a.Timestamp = parsed

	if attested.Valid {
		a.AttestationAccepted = action.Bool(attested.Int64 != 0)
	}

	return a, nil
}
