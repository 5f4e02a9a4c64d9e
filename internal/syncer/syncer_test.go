package syncer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewclock/kiosk/internal/action"
	"github.com/crewclock/kiosk/internal/connectivity"
	"github.com/crewclock/kiosk/internal/gateway"
	"github.com/crewclock/kiosk/internal/queue"
	"github.com/crewclock/kiosk/internal/testutil"
)

type fixture struct {
	store   *queue.Store
	gw      *testutil.FakeGateway
	monitor *connectivity.Monitor
	engine  *Engine
}

func newFixture(t *testing.T, online bool) *fixture {
	t.Helper()

	store, err := queue.Open(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	gw := &testutil.FakeGateway{}
	monitor := connectivity.NewMonitor(online)
	tokens := &testutil.StaticTokens{TokenValue: "tok-1"}

	return &fixture{
		store:   store,
		gw:      gw,
		monitor: monitor,
		engine:  New(store, gw, tokens, monitor, time.Hour),
	}
}

func (f *fixture) enqueue(t *testing.T, ids ...string) {
	t.Helper()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i, id := range ids {
		err := f.store.Enqueue(context.Background(), action.QueuedAction{
			ID:        id,
			Code:      "AB1234",
			Action:    action.TypeClockIn,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
}

func (f *fixture) pendingIDs(t *testing.T) []string {
	t.Helper()
	actions, err := f.store.ListAll(context.Background())
	require.NoError(t, err)
	var ids []string
	for _, a := range actions {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestEngine_Sync_EmptyQueue(t *testing.T) {
	f := newFixture(t, true)

	stats, err := f.engine.Sync(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Attempted)
	assert.Zero(t, f.gw.SyncBatchCount(), "no batch call for an empty queue")
}

func TestEngine_Sync_AllConfirmed(t *testing.T) {
	f := newFixture(t, true)
	f.enqueue(t, "a-1", "a-2", "a-3")

	stats, err := f.engine.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Attempted)
	assert.Equal(t, 3, stats.Synced)
	assert.Zero(t, stats.Remaining)
	assert.Empty(t, f.pendingIDs(t))
}

// Queue conservation: after a cycle, the queue contains exactly the
// subset whose result was success=false or missing.
func TestEngine_Sync_PartialFailure(t *testing.T) {
	f := newFixture(t, true)
	f.enqueue(t, "a-1", "a-2", "a-3")

	f.gw.SyncFunc = func(ctx context.Context, actions []action.QueuedAction) (*gateway.SyncResult, error) {
		return &gateway.SyncResult{
			Synced: 1,
			Results: []gateway.ItemResult{
				{ID: "a-1", Success: true},
				{ID: "a-2", Success: false, Error: "shift not open"},
				// a-3 missing from results entirely
			},
		}, nil
	}

	stats, err := f.engine.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Attempted)
	assert.Equal(t, 1, stats.Synced)
	assert.Equal(t, 2, stats.Remaining)
	assert.Equal(t, []string{"a-2", "a-3"}, f.pendingIDs(t))
}

func TestEngine_Sync_BatchFailureLeavesQueueIntact(t *testing.T) {
	f := newFixture(t, true)
	f.enqueue(t, "a-1", "a-2")

	f.gw.SyncFunc = func(ctx context.Context, actions []action.QueuedAction) (*gateway.SyncResult, error) {
		return nil, &gateway.NetworkError{Op: "sync", Err: errors.New("connection reset")}
	}

	_, err := f.engine.Sync(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"a-1", "a-2"}, f.pendingIDs(t))
}

func TestEngine_Sync_SkipsWhenOffline(t *testing.T) {
	f := newFixture(t, false)
	f.enqueue(t, "a-1")

	stats, err := f.engine.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Remaining)
	assert.Zero(t, f.gw.SyncBatchCount(), "no network call while offline")
	assert.Equal(t, []string{"a-1"}, f.pendingIDs(t))
}

func TestEngine_Sync_SkipsWithoutCredential(t *testing.T) {
	store, err := queue.Open(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	defer store.Close()

	gw := &testutil.FakeGateway{}
	monitor := connectivity.NewMonitor(true)
	tokens := &testutil.StaticTokens{Err: gateway.ErrNoCredential}
	engine := New(store, gw, tokens, monitor, time.Hour)

	require.NoError(t, store.Enqueue(context.Background(), action.QueuedAction{
		ID:        "a-1",
		Code:      "AB1234",
		Action:    action.TypeClockIn,
		Timestamp: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}))

	stats, err := engine.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Remaining)
	assert.Zero(t, gw.SyncBatchCount(), "queue untouched without a credential")
}

// Single in-flight sync: while one cycle is blocked mid-batch, a second
// trigger returns immediately without a second batch call.
func TestEngine_Sync_SingleFlight(t *testing.T) {
	f := newFixture(t, true)
	f.enqueue(t, "a-1")

	entered := make(chan struct{})
	release := make(chan struct{})
	f.gw.SyncFunc = func(ctx context.Context, actions []action.QueuedAction) (*gateway.SyncResult, error) {
		close(entered)
		<-release
		return &gateway.SyncResult{
			Synced:  1,
			Results: []gateway.ItemResult{{ID: "a-1", Success: true}},
		}, nil
	}

	type outcome struct {
		stats Stats
		err   error
	}
	done := make(chan outcome)
	go func() {
		stats, err := f.engine.Sync(context.Background())
		done <- outcome{stats, err}
	}()

	<-entered

	_, err := f.engine.Sync(context.Background())
	assert.ErrorIs(t, err, ErrSyncInFlight)

	close(release)

	select {
	case out := <-done:
		require.NoError(t, out.err)
		assert.Equal(t, 1, out.stats.Synced)
	case <-time.After(2 * time.Second):
		t.Fatal("first sync did not complete")
	}

	assert.Equal(t, 1, f.gw.SyncBatchCount(), "exactly one batch call")
}

// The guard is released after a failing cycle, so the next trigger works.
func TestEngine_Sync_GuardReleasedAfterError(t *testing.T) {
	f := newFixture(t, true)
	f.enqueue(t, "a-1")

	calls := 0
	f.gw.SyncFunc = func(ctx context.Context, actions []action.QueuedAction) (*gateway.SyncResult, error) {
		calls++
		if calls == 1 {
			return nil, &gateway.NetworkError{Op: "sync", Err: errors.New("timeout")}
		}
		return &gateway.SyncResult{
			Synced:  1,
			Results: []gateway.ItemResult{{ID: "a-1", Success: true}},
		}, nil
	}

	_, err := f.engine.Sync(context.Background())
	require.Error(t, err)

	stats, err := f.engine.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Synced)
	assert.Empty(t, f.pendingIDs(t))
}

// A connectivity recovery triggers a sync without an explicit call.
func TestEngine_RecoveryTrigger(t *testing.T) {
	f := newFixture(t, false)
	f.enqueue(t, "a-1")

	f.monitor.Set(true)

	require.Eventually(t, func() bool {
		n, err := f.store.Count(context.Background())
		return err == nil && n == 0
	}, 2*time.Second, 10*time.Millisecond, "recovery sync should drain the queue")
	assert.Equal(t, 1, f.gw.SyncBatchCount())
}
