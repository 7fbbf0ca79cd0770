package http

import (
	"context"
	"net/http"
	"time"

	"budget/internal/core"
)

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

type readyResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Checks    map[string]any `json:"checks"`
}

// handleReady verifies storage is reachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{"storage": "ok"}

	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			checks["storage"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		}
	}
	if s.rateLimiter != nil {
		checks["rate_limiter"] = map[string]any{"active_clients": s.rateLimiter.ActiveClients()}
	}

	NewResponse().Status(code).JSON(readyResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}).Write(w)
}

// requireBudget resolves the {id} wildcard and writes 400 or 404 itself
// when it fails.
func (s *Server) requireBudget(w http.ResponseWriter, r *http.Request, op string) (core.Budget, bool) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, op, err)
		return core.Budget{}, false
	}
	b, err := s.ledger.GetBudget(r.Context(), id)
	if err != nil {
		writeError(w, r, op, err)
		return core.Budget{}, false
	}
	return b, true
}
