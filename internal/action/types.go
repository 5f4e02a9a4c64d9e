package action

import (
	"fmt"
	"time"
)

// Type identifies a time event a worker can record at the kiosk.
type Type string

const (
	// TypeClockIn starts a shift.
	TypeClockIn Type = "clock_in"
	// TypeClockOut ends a shift. Always carries an attestation outcome.
	TypeClockOut Type = "clock_out"
	// TypeMealStart begins a meal break within a shift.
	TypeMealStart Type = "meal_start"
	// TypeMealEnd ends a meal break and resumes the shift.
	TypeMealEnd Type = "meal_end"
)

// Valid reports whether t is one of the four recognized action types.
func (t Type) Valid() bool {
	switch t {
	case TypeClockIn, TypeClockOut, TypeMealStart, TypeMealEnd:
		return true
	}
	return false
}

// Label returns the human-readable confirmation label for the action.
// A clock-out with a rejected attestation gets a distinct label so
// downstream review can tell an honest rejection from a normal clock-out.
func (t Type) Label(attestationAccepted bool) string {
	switch t {
	case TypeClockIn:
		return "Checked In"
	case TypeClockOut:
		if !attestationAccepted {
			return "Clocked Out (attestation rejected)"
		}
		return "Clocked Out"
	case TypeMealStart:
		return "Meal Started"
	case TypeMealEnd:
		return "Meal Ended"
	}
	return string(t)
}

// QueuedAction is a durable record of a worker's intent, independent of
// whether it ever reached the remote system of record.
//
// ID is generated client-side (UUIDv7) and doubles as the idempotency
// token the gateway deduplicates on. Timestamp is captured at the moment
// the worker requested the action, never at send or sync time, so
// timestamp ordering reflects real-world event ordering even when network
// submission is delayed arbitrarily.
type QueuedAction struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Action    Type      `json:"action"`
	Timestamp time.Time `json:"timestamp"`

	// Signature is a base64-encoded signature image, present only on a
	// clock-out whose attestation was accepted.
	Signature string `json:"signature,omitempty"`

	// AttestationAccepted is set only on clock-out actions: true for an
	// accepted attestation, false for an explicit rejection.
	AttestationAccepted *bool `json:"attestationAccepted,omitempty"`

	// EventID associates the action with the active event context, if any.
	EventID string `json:"eventId,omitempty"`
}

// Validate checks structural invariants before the action is persisted.
func (a QueuedAction) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("queued action: missing id")
	}
	if !a.Action.Valid() {
		return fmt.Errorf("queued action %s: unknown action type %q", a.ID, a.Action)
	}
	if a.Timestamp.IsZero() {
		return fmt.Errorf("queued action %s: missing timestamp", a.ID)
	}
	if a.Action != TypeClockOut {
		if a.Signature != "" || a.AttestationAccepted != nil {
			return fmt.Errorf("queued action %s: attestation fields on non-clock-out action %q", a.ID, a.Action)
		}
		return nil
	}
	if a.AttestationAccepted == nil {
		return fmt.Errorf("queued action %s: clock-out without attestation outcome", a.ID)
	}
	if *a.AttestationAccepted && a.Signature == "" {
		return fmt.Errorf("queued action %s: accepted attestation without signature", a.ID)
	}
	if !*a.AttestationAccepted && a.Signature != "" {
		return fmt.Errorf("queued action %s: rejected attestation carries signature", a.ID)
	}
	return nil
}

// Clock supplies wall-clock time for stamping actions at intent time.
// Production code uses SystemClock; tests inject a deterministic clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system wall clock.
type SystemClock struct{}

// Now returns the current time in UTC.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Bool returns a pointer to b, for populating AttestationAccepted.
func Bool(b bool) *bool {
	return &b
}
