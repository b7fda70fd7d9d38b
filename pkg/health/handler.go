// Package health exposes the standard health route surface for services
// built on this library: a liveness check backed by the database
// connectivity prober, a trivial readiness check, and a worker readiness
// check backed by a pluggable ping.
package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nexor-io/nexor-go/pkg/config"
	"github.com/nexor-io/nexor-go/pkg/database"
)

// WorkerPingFunc performs a healthcheck on the service's worker backend.
type WorkerPingFunc func(ctx context.Context) error

// NoopWorkerPing is the default worker ping and always succeeds.
func NoopWorkerPing(ctx context.Context) error {
	return nil
}

// RedisWorkerPing reports worker readiness by pinging the Redis instance the
// worker queue lives on.
func RedisWorkerPing(client *redis.Client) WorkerPingFunc {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

// Handler serves the health routes.
type Handler struct {
	settings   *config.ServiceSettings
	manager    *database.Manager
	workerPing WorkerPingFunc
	logger     *zap.Logger
}

// NewHandler creates a health Handler. workerPing may be nil, in which case
// the worker readiness check always succeeds.
func NewHandler(settings *config.ServiceSettings, manager *database.Manager, workerPing WorkerPingFunc, logger *zap.Logger) *Handler {
	if workerPing == nil {
		workerPing = NoopWorkerPing
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		settings:   settings,
		manager:    manager,
		workerPing: workerPing,
		logger:     logger,
	}
}

// RegisterRoutes registers the health routes on the mux under the settings'
// prefix. A no-op when the health surface is disabled.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	if !h.settings.Health.Enabled {
		return
	}
	prefix := h.settings.Health.Prefix
	if prefix == "" {
		prefix = "/health"
	}
	mux.HandleFunc(prefix+"/healthz", h.Healthz)
	mux.HandleFunc(prefix+"/readyz", h.Readyz)
	mux.HandleFunc(prefix+"/readyz/worker", h.ReadyzWorker)
}

// Healthz handles the liveness check: 200 when the database connectivity
// test passes, 503 with the error detail otherwise. When the request context
// carries no engine scope the probe runs under a dedicated "health" scope so
// its engines never mix with request-serving ones.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := database.ScopeFrom(ctx); !ok {
		ctx = database.WithScope(ctx, "health")
	}
	if err := h.manager.TestConnection(ctx, h.settings); err != nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz handles the trivial readiness check and always returns 200.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// ReadyzWorker reports worker readiness via the configured ping.
func (h *Handler) ReadyzWorker(w http.ResponseWriter, r *http.Request) {
	if err := h.workerPing(r.Context()); err != nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}
