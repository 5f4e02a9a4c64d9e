// Package statusapi serves a read-only operational view of the terminal:
// connectivity, aggregate pending-queue count, and session status. This
// is an operator surface, not the worker UI; it only ever reads.
package statusapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/crewclock/kiosk/internal/connectivity"
	"github.com/crewclock/kiosk/internal/queue"
	"github.com/crewclock/kiosk/internal/session"
)

// Server exposes the status endpoint.
type Server struct {
	monitor *connectivity.Monitor
	store   *queue.Store
	session *session.Session
	router  *mux.Router
}

// StatusResponse is the JSON body of GET /status.
type StatusResponse struct {
	Online       bool           `json:"online"`
	PendingCount int            `json:"pendingCount"`
	Session      *SessionStatus `json:"session,omitempty"`
	GeneratedAt  time.Time      `json:"generatedAt"`
}

// SessionStatus is the read-only session view. The check-in code is
// deliberately omitted.
type SessionStatus struct {
	WorkerName string `json:"workerName"`
	WorkerID   string `json:"workerId"`
	Status     string `json:"status"`
}

// NewServer builds the status server and its routes.
func NewServer(monitor *connectivity.Monitor, store *queue.Store, sess *session.Session) *Server {
	s := &Server{
		monitor: monitor,
		store:   store,
		session: sess,
		router:  mux.NewRouter(),
	}
	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	return s
}

// Handler returns the HTTP handler for mounting or testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("status server shutdown", "error", err)
		}
	}()

	slog.Info("status server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	pending, err := s.store.Count(r.Context())
	if err != nil {
		slog.Error("status: count failed", "error", err)
		http.Error(w, "storage unavailable", http.StatusInternalServerError)
		return
	}

	resp := StatusResponse{
		Online:       s.monitor.IsOnline(),
		PendingCount: pending,
		GeneratedAt:  time.Now().UTC(),
	}
	if worker, ok := s.session.Current(); ok {
		resp.Session = &SessionStatus{
			WorkerName: worker.Name,
			WorkerID:   worker.WorkerID,
			Status:     string(worker.Status),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("status: encode failed", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
