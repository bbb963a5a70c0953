package handlers

import (
	"errors"
	"net/http"

	"github.com/bobmcallan/advisor-portal/internal/common"
	"github.com/bobmcallan/advisor-portal/internal/live"
	"github.com/bobmcallan/advisor-portal/internal/portal"
	"github.com/bobmcallan/advisor-portal/internal/reconcile"
)

// ReportsHandler serves the reports the advisor shared with the client.
type ReportsHandler struct {
	logger     *common.Logger
	subscriber *live.Subscriber
	portal     *portal.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(logger *common.Logger, subscriber *live.Subscriber, svc *portal.Service) *ReportsHandler {
	return &ReportsHandler{logger: logger, subscriber: subscriber, portal: svc}
}

// HandleList handles GET /api/reports.
func (h *ReportsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	owner := ownerID(r)
	reports, err := h.subscriber.FetchReports(r.Context(), owner)
	if err != nil {
		h.logger.Error().Str("client_id", owner).Str("error", err.Error()).Msg("failed to list reports")
		WriteError(w, http.StatusServiceUnavailable, "failed to load reports")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"reports":       reports,
		"latest_report": reconcile.LatestReport(reports),
	})
}

// HandleAction handles POST /api/reports/{id}/download and
// POST /api/reports/{id}/view.
func (h *ReportsHandler) HandleAction(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	owner := ownerID(r)
	id := r.PathValue("id")

	var err error
	switch r.PathValue("action") {
	case "download":
		err = h.portal.MarkReportDownloaded(r.Context(), owner, id)
	case "view":
		err = h.portal.MarkReportViewed(r.Context(), owner, id)
	default:
		WriteError(w, http.StatusNotFound, "unknown report action")
		return
	}

	if err != nil {
		if errors.Is(err, portal.ErrReportNotFound) {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error().Str("client_id", owner).Str("report_id", id).Str("error", err.Error()).Msg("failed to update report")
		WriteError(w, http.StatusServiceUnavailable, "failed to update report")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
