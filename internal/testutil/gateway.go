package testutil

import (
	"context"
	"sync"

	"github.com/crewclock/kiosk/internal/action"
	"github.com/crewclock/kiosk/internal/gateway"
)

// FakeGateway is a scriptable in-memory gateway for tests. Each method
// delegates to the corresponding function field when set; otherwise it
// succeeds with a zero-value response. All calls are recorded.
//
// Thread-safety: safe for concurrent use.
type FakeGateway struct {
	mu sync.Mutex

	ValidateFunc func(ctx context.Context, code string) (*gateway.ValidateResult, error)
	SubmitFunc   func(ctx context.Context, a action.QueuedAction) error
	SyncFunc     func(ctx context.Context, actions []action.QueuedAction) (*gateway.SyncResult, error)
	SummaryFunc  func(ctx context.Context, workerID string) (*gateway.ShiftSummary, error)

	Validations []string
	Submitted   []action.QueuedAction
	SyncBatches [][]action.QueuedAction
	Heartbeats  []string
}

var _ gateway.Gateway = (*FakeGateway)(nil)

// Validate implements gateway.Gateway.
func (f *FakeGateway) Validate(ctx context.Context, code string) (*gateway.ValidateResult, error) {
	f.mu.Lock()
	f.Validations = append(f.Validations, code)
	fn := f.ValidateFunc
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, code)
	}
	return &gateway.ValidateResult{
		Name:     "Test Worker",
		WorkerID: "w-1",
		CodeID:   "c-1",
		Status:   action.StatusNotClockedIn,
	}, nil
}

// Submit implements gateway.Gateway.
func (f *FakeGateway) Submit(ctx context.Context, a action.QueuedAction) error {
	f.mu.Lock()
	fn := f.SubmitFunc
	f.mu.Unlock()

	if fn != nil {
		if err := fn(ctx, a); err != nil {
			return err
		}
	}

	f.mu.Lock()
	f.Submitted = append(f.Submitted, a)
	f.mu.Unlock()
	return nil
}

// SyncBatch implements gateway.Gateway. The default response confirms
// every action.
func (f *FakeGateway) SyncBatch(ctx context.Context, actions []action.QueuedAction) (*gateway.SyncResult, error) {
	batch := make([]action.QueuedAction, len(actions))
	copy(batch, actions)

	f.mu.Lock()
	f.SyncBatches = append(f.SyncBatches, batch)
	fn := f.SyncFunc
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, actions)
	}

	result := &gateway.SyncResult{Synced: len(actions)}
	for _, a := range actions {
		result.Results = append(result.Results, gateway.ItemResult{ID: a.ID, Success: true})
	}
	return result, nil
}

// ShiftSummary implements gateway.Gateway.
func (f *FakeGateway) ShiftSummary(ctx context.Context, workerID string) (*gateway.ShiftSummary, error) {
	f.mu.Lock()
	fn := f.SummaryFunc
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, workerID)
	}
	return &gateway.ShiftSummary{Active: true}, nil
}

// Heartbeat implements gateway.Gateway.
func (f *FakeGateway) Heartbeat(ctx context.Context, eventID string) {
	f.mu.Lock()
	f.Heartbeats = append(f.Heartbeats, eventID)
	f.mu.Unlock()
}

// SyncBatchCount returns how many batch calls were made.
func (f *FakeGateway) SyncBatchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.SyncBatches)
}

// SubmittedCount returns how many direct submissions succeeded.
func (f *FakeGateway) SubmittedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Submitted)
}

// StaticTokens is a TokenSource returning a fixed token, or Err when set.
type StaticTokens struct {
	TokenValue string
	Err        error
}

// Token implements gateway.TokenSource.
func (s *StaticTokens) Token(ctx context.Context) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	return s.TokenValue, nil
}
