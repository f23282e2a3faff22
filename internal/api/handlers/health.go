package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/eshaffer321/marketplace-order-sync/internal/api/dto"
	"github.com/eshaffer321/marketplace-order-sync/internal/infrastructure/storage"
)

const healthPingTimeout = 2 * time.Second

// HealthHandler reports database reachability and the configured marketplace.
type HealthHandler struct {
	*Base
	marketplace string
	logger      *slog.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(repo storage.Repository, marketplace string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		Base:        NewBase(repo),
		marketplace: marketplace,
		logger:      logger,
	}
}

// ServeHTTP answers 200 when the database responds and 503 otherwise.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	status := http.StatusOK
	err := h.repo.Ping(ctx)
	if err != nil {
		h.logger.Warn("health check: database unreachable", "error", err)
		status = http.StatusServiceUnavailable
	}

	h.WriteJSON(w, status, dto.NewHealthResponse(err == nil, h.marketplace))
}
