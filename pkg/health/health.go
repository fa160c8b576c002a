package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status represents the health of a single dependency.
type Status struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// CheckFunc probes one dependency. It must respect the context deadline.
type CheckFunc func(ctx context.Context) error

// Handler aggregates readiness checks and serves liveness/readiness probes.
type Handler struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// NewHandler creates an empty health handler.
func NewHandler() *Handler {
	return &Handler{checks: make(map[string]CheckFunc)}
}

// Register adds a named readiness check.
func (h *Handler) Register(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Liveness reports that the process is up. It never checks dependencies:
// a dead database must not get the process restarted.
func (h *Handler) Liveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Readiness runs all registered checks and returns 503 if any fail.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	h.mu.RLock()
	checks := make(map[string]CheckFunc, len(h.checks))
	for name, c := range h.checks {
		checks[name] = c
	}
	h.mu.RUnlock()

	statuses := make([]Status, 0, len(checks))
	healthy := true
	for name, check := range checks {
		s := Status{Name: name, Healthy: true}
		if err := check(ctx); err != nil {
			s.Healthy = false
			s.Error = err.Error()
			healthy = false
		}
		statuses = append(statuses, s)
	}

	code := http.StatusOK
	status := "ready"
	if !healthy {
		code = http.StatusServiceUnavailable
		status = "not ready"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": status,
		"checks": statuses,
	})
}
