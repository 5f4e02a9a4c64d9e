// Package gateway defines the remote action gateway contract and its
// production HTTP client. The gateway is the external system of record:
// it validates check-in codes and accepts individual or batched actions.
//
// Both Submit and SyncBatch are assumed tolerant of duplicate ids arriving
// more than once (at-least-once delivery); deduplication is the server's
// contract, not verified here.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crewclock/kiosk/internal/action"
)

// ValidateResult is the gateway's answer to a code validation: who the
// worker is and their authoritative current status.
type ValidateResult struct {
	Name        string        `json:"name"`
	WorkerID    string        `json:"workerId"`
	CodeID      string        `json:"codeId"`
	Status      action.Status `json:"status"`
	ClockedInAt *time.Time    `json:"clockedInAt,omitempty"`
}

// ItemResult is the per-action outcome within a batch sync response.
type ItemResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// SyncResult is the gateway's response to a batch sync.
type SyncResult struct {
	Synced  int          `json:"synced"`
	Results []ItemResult `json:"results"`
}

// ShiftSummary is the best-effort shift overview shown on the attestation
// screen. Absence of this data degrades to placeholder display.
type ShiftSummary struct {
	Active    bool       `json:"active"`
	ClockInAt *time.Time `json:"clockInAt,omitempty"`
	MealMs    int64      `json:"mealMs"`
}

// Gateway is the remote action gateway contract.
//
// Validate requires connectivity; callers must refuse to invoke it while
// offline. Heartbeat is fire-and-forget: implementations log failures and
// never return them.
type Gateway interface {
	Validate(ctx context.Context, code string) (*ValidateResult, error)
	Submit(ctx context.Context, a action.QueuedAction) error
	SyncBatch(ctx context.Context, actions []action.QueuedAction) (*SyncResult, error)
	ShiftSummary(ctx context.Context, workerID string) (*ShiftSummary, error)
	Heartbeat(ctx context.Context, eventID string)
}

// TokenSource supplies the bearer credential attached to every gateway
// call. The keepalive component owns the production implementation.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// ErrNoCredential indicates no valid credential is currently held.
// The sync engine skips the cycle and retries on the next trigger.
var ErrNoCredential = errors.New("no valid credential available")

// ErrSessionExpired indicates the credential was rejected by the gateway.
// Surfaced as a blocking condition requiring re-authentication.
var ErrSessionExpired = errors.New("session expired: re-authentication required")

// ValidationError reports a code the gateway refused: unknown, expired,
// or revoked. Recoverable, shown inline, no state mutation.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("code %s rejected: %s", e.Code, e.Message)
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NetworkError wraps a transport-level failure: connection refused, DNS,
// timeout, or a connectivity loss discovered mid-request. Never surfaced
// as a hard error to the worker; it routes into the queue fallback.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsNetworkError reports whether err is (or wraps) a NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
