package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/bobmcallan/advisor-portal/internal/common"
	"github.com/bobmcallan/advisor-portal/internal/interfaces"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	logger *common.Logger
	docs   interfaces.DocumentGateway
}

// NewHealthHandler creates a new health handler. With a nil gateway only
// process liveness is reported.
func NewHealthHandler(logger *common.Logger, docs interfaces.DocumentGateway) *HealthHandler {
	return &HealthHandler{logger: logger, docs: docs}
}

// ServeHTTP handles GET /api/health.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	if h.docs != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if _, err := h.docs.GetOne(ctx, interfaces.CollectionClients, "_health"); err != nil {
			if h.logger != nil {
				h.logger.Warn().Str("error", err.Error()).Msg("document store health check failed")
			}
			WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "down"})
			return
		}
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
