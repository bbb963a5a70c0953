package handlers

import (
	"net/http"

	"github.com/bobmcallan/advisor-portal/internal/common"
	"github.com/bobmcallan/advisor-portal/internal/live"
	"github.com/bobmcallan/advisor-portal/internal/reconcile"
)

// BadgesHandler reports the navigation badges for clients that poll
// instead of holding a live feed.
type BadgesHandler struct {
	logger     *common.Logger
	subscriber *live.Subscriber
}

// NewBadgesHandler creates a new badges handler.
func NewBadgesHandler(logger *common.Logger, subscriber *live.Subscriber) *BadgesHandler {
	return &BadgesHandler{logger: logger, subscriber: subscriber}
}

// ServeHTTP handles GET /api/badges.
func (h *BadgesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	owner := ownerID(r)

	unread, err := h.subscriber.CountUnread(r.Context(), owner)
	if err != nil {
		h.logger.Error().Str("client_id", owner).Str("error", err.Error()).Msg("failed to count unread messages for badges")
		WriteError(w, http.StatusServiceUnavailable, "failed to load badges")
		return
	}
	reports, err := h.subscriber.FetchReports(r.Context(), owner)
	if err != nil {
		h.logger.Error().Str("client_id", owner).Str("error", err.Error()).Msg("failed to load reports for badges")
		WriteError(w, http.StatusServiceUnavailable, "failed to load badges")
		return
	}

	WriteJSON(w, http.StatusOK, reconcile.BadgesWithUnread(unread, reports))
}
