package http

import (
	"context"
	"net/http"
	"time"

	"github.com/DRSN-tech/shop-backend/pkg/logger"
)

const healthCheckTimeout = 2 * time.Second

// Pinger — зависимость, доступность которой проверяет /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db     Pinger
	logger logger.Logger
}

func NewHealthHandler(db Pinger, logger logger.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

type healthResponse struct {
	Status string `json:"status"`
}

func (h *HealthHandler) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warnf("health check failed: %v", err)
		WriteErrorStatus(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}

	WriteSuccess(w, http.StatusOK, healthResponse{Status: "ok"})
}
