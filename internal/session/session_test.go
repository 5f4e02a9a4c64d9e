package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewclock/kiosk/internal/action"
	"github.com/crewclock/kiosk/internal/testutil"
)

func newTestSession(t *testing.T) (*Session, *testutil.FixedClock) {
	t.Helper()
	clock := testutil.NewFixedClock(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	return New(clock), clock
}

func testWorker(status action.Status) Worker {
	return Worker{
		Name:     "Jordan Vega",
		WorkerID: "w-42",
		CodeID:   "c-42",
		Code:     "AB1234",
		Status:   status,
	}
}

func TestSession_BeginAndCurrent(t *testing.T) {
	sess, _ := newTestSession(t)

	_, ok := sess.Current()
	assert.False(t, ok)

	sess.Begin(testWorker(action.StatusNotClockedIn))

	worker, ok := sess.Current()
	require.True(t, ok)
	assert.Equal(t, "w-42", worker.WorkerID)
	assert.Equal(t, action.StatusNotClockedIn, worker.Status)
}

func TestSession_Guard_NoWorker(t *testing.T) {
	sess, _ := newTestSession(t)
	assert.ErrorIs(t, sess.Guard(action.TypeClockIn), ErrNoWorker)
}

func TestSession_Guard_IllegalTransition(t *testing.T) {
	sess, _ := newTestSession(t)
	sess.Begin(testWorker(action.StatusNotClockedIn))

	err := sess.Guard(action.TypeMealStart)
	require.Error(t, err)
	var te *action.TransitionError
	assert.ErrorAs(t, err, &te)
}

func TestSession_Advance_OptimisticCycle(t *testing.T) {
	sess, _ := newTestSession(t)
	sess.Begin(testWorker(action.StatusNotClockedIn))

	status, err := sess.Advance(action.TypeClockIn)
	require.NoError(t, err)
	assert.Equal(t, action.StatusClockedIn, status)

	worker, ok := sess.Current()
	require.True(t, ok)
	assert.NotNil(t, worker.ClockedInAt, "clock-in stamps ClockedInAt")

	status, err = sess.Advance(action.TypeMealStart)
	require.NoError(t, err)
	assert.Equal(t, action.StatusOnMeal, status)

	status, err = sess.Advance(action.TypeMealEnd)
	require.NoError(t, err)
	assert.Equal(t, action.StatusClockedIn, status)
}

func TestSession_Advance_ClockOutDestroysSession(t *testing.T) {
	sess, _ := newTestSession(t)
	sess.Begin(testWorker(action.StatusClockedIn))

	status, err := sess.Advance(action.TypeClockOut)
	require.NoError(t, err)
	assert.Equal(t, action.StatusNotClockedIn, status)

	_, ok := sess.Current()
	assert.False(t, ok, "clock-out returns the terminal to code entry")
}

func TestSession_Advance_Illegal(t *testing.T) {
	sess, _ := newTestSession(t)
	sess.Begin(testWorker(action.StatusOnMeal))

	_, err := sess.Advance(action.TypeClockIn)
	require.Error(t, err)

	// Status unchanged after a rejected advance.
	worker, ok := sess.Current()
	require.True(t, ok)
	assert.Equal(t, action.StatusOnMeal, worker.Status)
}

func TestSession_Reset(t *testing.T) {
	sess, _ := newTestSession(t)
	sess.Begin(testWorker(action.StatusClockedIn))

	sess.Reset()

	_, ok := sess.Current()
	assert.False(t, ok)
}

func TestSession_IdleFor(t *testing.T) {
	sess, clock := newTestSession(t)

	// No session: never idle.
	assert.Zero(t, sess.IdleFor())

	sess.Begin(testWorker(action.StatusClockedIn))
	clock.Advance(30 * time.Second)
	assert.Equal(t, 30*time.Second, sess.IdleFor())

	// Any interaction resets the window.
	sess.Touch()
	assert.Zero(t, sess.IdleFor())

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 2*time.Minute, sess.IdleFor())
}
