package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/dtroode/studyvault-server/internal/logger"
)

// Pinger reports whether the store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Health struct {
	store  Pinger
	logger *logger.Logger
}

func NewHealth(store Pinger, logger *logger.Logger) *Health {
	return &Health{store: store, logger: logger}
}

type healthResponse struct {
	Status string `json:"status"`
}

// Healthz answers 200 while the store is reachable and 503 otherwise.
func (h *Health) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("Health handler: store ping failed",
			"error", err.Error())
		WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}

	WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
