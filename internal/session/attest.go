package session

import (
	"errors"

	"github.com/crewclock/kiosk/internal/action"
)

// ErrEmptySignature indicates an attestation was accepted with no drawn
// signature. Accept requires a non-empty captured signature image.
var ErrEmptySignature = errors.New("attestation accepted without a signature")

// AttestationOutcome is the terminal result of the clock-out attestation
// subflow.
type AttestationOutcome int

const (
	// AttestationAccepted: the worker signed and affirmed their hours.
	AttestationAccepted AttestationOutcome = iota + 1
	// AttestationRejected: the worker explicitly declined to affirm.
	// Still clocks out, with a distinct label for downstream review.
	AttestationRejected
	// AttestationCancelled: the worker backed out; no action is produced
	// and the prior status is retained.
	AttestationCancelled
)

// Attestation is a completed attestation subflow result.
type Attestation struct {
	Outcome   AttestationOutcome
	Signature string // base64 image, only when accepted
}

// AcceptAttestation builds the accepted outcome. The signature image must
// be non-empty; an accepted clock-out is never recorded without one.
func AcceptAttestation(signature string) (Attestation, error) {
	if signature == "" {
		return Attestation{}, ErrEmptySignature
	}
	return Attestation{Outcome: AttestationAccepted, Signature: signature}, nil
}

// RejectAttestation builds the explicit-rejection outcome: no signature,
// attestationAccepted = false.
func RejectAttestation() Attestation {
	return Attestation{Outcome: AttestationRejected}
}

// CancelAttestation builds the cancel outcome: the clock-out is abandoned
// and the worker returns to their prior status.
func CancelAttestation() Attestation {
	return Attestation{Outcome: AttestationCancelled}
}

// Apply stamps the attestation result onto a clock-out action.
// Returns false (and leaves the action untouched) for a cancel.
func (at Attestation) Apply(a *action.QueuedAction) (bool, error) {
	switch at.Outcome {
	case AttestationAccepted:
		if at.Signature == "" {
			return false, ErrEmptySignature
		}
		a.Signature = at.Signature
		a.AttestationAccepted = action.Bool(true)
		return true, nil
	case AttestationRejected:
		a.Signature = ""
		a.AttestationAccepted = action.Bool(false)
		return true, nil
	case AttestationCancelled:
		return false, nil
	}
	return false, errors.New("attestation outcome not set")
}
