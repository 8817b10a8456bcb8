package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/coachlab/internal/store"
)

// HealthHandler reports database reachability and the configured provider.
type HealthHandler struct {
	repo     store.Repository
	provider string
	model    string
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(repo store.Repository, provider, model string) *HealthHandler {
	return &HealthHandler{repo: repo, provider: provider, model: model}
}

// RegisterRoutes registers the health route.
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/health", h.Health)
}

// Health pings the database.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	body := map[string]string{
		"status":   "ok",
		"database": "ok",
		"provider": h.provider,
		"model":    h.model,
	}
	status := http.StatusOK

	if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check: database unreachable", "error", err)
		body["status"] = "degraded"
		body["database"] = "unreachable"
		status = http.StatusServiceUnavailable
	}

	JSON(w, status, body)
}
