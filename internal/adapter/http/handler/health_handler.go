package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/iho/tillclose/internal/adapter/http/dto"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

// Ping calls f.
func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Dependency is a named service checked by the readiness probe.
type Dependency struct {
	Name   string
	Pinger Pinger
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	deps    []Dependency
	timeout time.Duration
}

// NewHealthHandler creates a new HealthHandler. Nil pingers are skipped.
func NewHealthHandler(deps ...Dependency) *HealthHandler {
	h := &HealthHandler{timeout: 5 * time.Second}
	for _, d := range deps {
		if d.Pinger != nil {
			h.deps = append(h.deps, d)
		}
	}
	return h
}

// Liveness returns 200 if the service is alive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.HealthResponse{Status: "ok"})
}

// Readiness returns 200 if every dependency answers a ping.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	services := make(map[string]string, len(h.deps))
	for _, d := range h.deps {
		if err := d.Pinger.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, d.Name+" unhealthy", err.Error())
			return
		}
		services[d.Name] = "ok"
	}

	writeJSON(w, http.StatusOK, dto.HealthResponse{
		Status:   "ready",
		Services: services,
	})
}
