package gateway_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/crewclock/kiosk/internal/action"
	"github.com/crewclock/kiosk/internal/gateway"
	"github.com/crewclock/kiosk/internal/testutil"
)

// The batch sync payload is a wire contract with the gateway: a golden
// file pins the exact shape, including which optional fields are
// omitted.
//
// To regenerate, run:
//
//	go test ./internal/gateway -update
func TestSyncBatch_WirePayload_Golden(t *testing.T) {
	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		captured = body
		json.NewEncoder(w).Encode(gateway.SyncResult{})
	}))
	defer srv.Close()

	client := gateway.NewClient(srv.URL, &testutil.StaticTokens{TokenValue: "tok-1"})

	actions := []action.QueuedAction{
		{
			ID:        "01890000-0000-7000-8000-000000000001",
			Code:      "AB1234",
			Action:    action.TypeClockIn,
			Timestamp: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		},
		{
			ID:                  "01890000-0000-7000-8000-000000000002",
			Code:                "AB1234",
			Action:              action.TypeClockOut,
			Timestamp:           time.Date(2026, 3, 14, 17, 45, 0, 0, time.UTC),
			Signature:           "c2lnbmF0dXJl",
			AttestationAccepted: action.Bool(true),
			EventID:             "evt-7",
		},
	}

	_, err := client.SyncBatch(context.Background(), actions)
	require.NoError(t, err)
	require.NotEmpty(t, captured)

	var pretty bytes.Buffer
	require.NoError(t, json.Indent(&pretty, captured, "", "  "))
	pretty.WriteByte('\n')

	g := goldie.New(t)
	g.Assert(t, "sync_batch_request", pretty.Bytes())
}
