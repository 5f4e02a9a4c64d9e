package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/crewclock/kiosk/internal/action"
)

// DefaultTimeout bounds each gateway request. A kiosk on flaky venue
// wifi must discover a dead connection quickly so the queue fallback can
// take over.
const DefaultTimeout = 10 * time.Second

// Client is the production HTTP implementation of Gateway.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client (for testing).
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		c.http = h
	}
}

// NewClient creates a gateway client for the given base URL.
func NewClient(baseURL string, tokens TokenSource, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
		tokens:  tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type validateRequest struct {
	Code string `json:"code"`
}

type submitRequest struct {
	Code                string    `json:"code"`
	Action              string    `json:"action"`
	Timestamp           time.Time `json:"timestamp"`
	Signature           string    `json:"signature,omitempty"`
	AttestationAccepted *bool     `json:"attestationAccepted,omitempty"`
	EventID             string    `json:"eventId,omitempty"`
	ID                  string    `json:"id"`
}

type syncRequest struct {
	Actions []action.QueuedAction `json:"actions"`
}

type heartbeatRequest struct {
	EventID string `json:"eventId"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Validate checks a worker code against the gateway.
// Returns *ValidationError for an unknown/expired code, ErrSessionExpired
// for a rejected credential, or *NetworkError for transport failures.
func (c *Client) Validate(ctx context.Context, code string) (*ValidateResult, error) {
	var result ValidateResult
	err := c.post(ctx, "validate", "/api/kiosk/validate", validateRequest{Code: code}, &result)
	if err != nil {
		var httpErr *statusError
		if errors.As(err, &httpErr) && (httpErr.status == http.StatusNotFound || httpErr.status == http.StatusForbidden) {
			return nil, &ValidationError{Code: code, Message: httpErr.message}
		}
		return nil, err
	}
	return &result, nil
}

// Submit sends a single action: the common online path.
func (c *Client) Submit(ctx context.Context, a action.QueuedAction) error {
	req := submitRequest{
		ID:                  a.ID,
		Code:                a.Code,
		Action:              string(a.Action),
		Timestamp:           a.Timestamp,
		Signature:           a.Signature,
		AttestationAccepted: a.AttestationAccepted,
		EventID:             a.EventID,
	}
	return c.post(ctx, "submit", "/api/kiosk/action", req, nil)
}

// SyncBatch reconciles the full pending queue in one request.
// Used exclusively by the sync engine.
func (c *Client) SyncBatch(ctx context.Context, actions []action.QueuedAction) (*SyncResult, error) {
	var result SyncResult
	if err := c.post(ctx, "sync", "/api/kiosk/sync", syncRequest{Actions: actions}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ShiftSummary fetches the best-effort shift overview for the attestation
// screen. Callers degrade to placeholder display on any error.
func (c *Client) ShiftSummary(ctx context.Context, workerID string) (*ShiftSummary, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/kiosk/summary?workerId=%s", c.baseURL, workerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build summary request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "summary", Err: err}
	}
	defer resp.Body.Close()

	if err := checkStatus("summary", resp); err != nil {
		return nil, err
	}

	var summary ShiftSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("decode summary response: %w", err)
	}
	return &summary, nil
}

// Heartbeat notifies the gateway the terminal is alive. Fire-and-forget:
// failures are logged and ignored.
func (c *Client) Heartbeat(ctx context.Context, eventID string) {
	if err := c.post(ctx, "heartbeat", "/api/kiosk/heartbeat", heartbeatRequest{EventID: eventID}, nil); err != nil {
		slog.Debug("heartbeat failed", "error", err)
	}
}

// post performs a JSON POST with the bearer credential and decodes the
// response into out (if non-nil).
func (c *Client) post(ctx context.Context, op, path string, body, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if err := checkStatus(op, resp); err != nil {
		return err
	}

	if out == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

// statusError carries a non-2xx HTTP status and the server's error text.
type statusError struct {
	op      string
	status  int
	message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("gateway %s: HTTP %d: %s", e.op, e.status, e.message)
}

// checkStatus maps HTTP statuses to the gateway error taxonomy.
func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var serverErr errorResponse
	message := resp.Status
	if err := json.NewDecoder(resp.Body).Decode(&serverErr); err == nil && serverErr.Error != "" {
		message = serverErr.Error
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrSessionExpired
	}

	// 5xx responses are treated like transport failures: the server may
	// not have durably accepted the action, so the queue fallback applies.
	if resp.StatusCode >= 500 {
		return &NetworkError{Op: op, Err: &statusError{op: op, status: resp.StatusCode, message: message}}
	}

	return &statusError{op: op, status: resp.StatusCode, message: message}
}
