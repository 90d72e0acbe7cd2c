package routes

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coah80/clipbot/internal/app"
	"github.com/coah80/clipbot/internal/config"
)

const statusTimeout = 5 * time.Second

// StatusProvider is the read-only view of the bot the routes expose.
type StatusProvider interface {
	Limits() app.Limits
	Capabilities() []app.Capability
	Status(ctx context.Context) (app.Status, error)
}

func CoreRoutes(r chi.Router, p StatusProvider, logger *slog.Logger) {
	h := &handlers{provider: p, logger: logger}
	r.Get("/health", h.handleHealth)
	r.Get("/api/limits", h.handleLimits)
	r.Get("/api/status", h.handleStatus)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

type handlers struct {
	provider StatusProvider
	logger   *slog.Logger
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, 200, map[string]interface{}{
		"status":  "ok",
		"version": config.Version,
	})
}

func (h *handlers) handleLimits(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, 200, map[string]interface{}{
		"limits":    h.provider.Limits(),
		"platforms": h.provider.Capabilities(),
	})
}

func (h *handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), statusTimeout)
	defer cancel()

	st, err := h.provider.Status(ctx)
	body := map[string]interface{}{"status": st}
	if err != nil {
		h.logger.Warn("system info incomplete", slog.Any("error", err))
		body["warning"] = "some host figures are unavailable"
	}
	respondJSON(w, 200, body)
}
