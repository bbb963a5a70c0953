package handlers

import (
	"errors"
	"net/http"

	"github.com/bobmcallan/advisor-portal/internal/auth"
	"github.com/bobmcallan/advisor-portal/internal/common"
	"github.com/bobmcallan/advisor-portal/internal/models"
	"github.com/bobmcallan/advisor-portal/internal/portal"
)

// ProfileHandler serves the signed-in client's profile.
type ProfileHandler struct {
	logger *common.Logger
	portal *portal.Service
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(logger *common.Logger, svc *portal.Service) *ProfileHandler {
	return &ProfileHandler{logger: logger, portal: svc}
}

// ServeHTTP handles GET and PUT /api/profile.
func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h.handleGet(w, r)
	case http.MethodPut:
		h.handleUpdate(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleGet provisions the profile on first access.
func (h *ProfileHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	profile, err := h.portal.EnsureProfile(r.Context(), portal.AuthUser{
		UID:         claims.ClientID(),
		Email:       claims.Email,
		DisplayName: claims.Name,
	})
	if err != nil {
		h.logger.Error().Str("client_id", claims.ClientID()).Str("error", err.Error()).Msg("failed to load profile")
		WriteError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	WriteJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)

	var profile models.ClientProfile
	if err := decodeJSON(r, &profile); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	profile.ID = owner

	if err := h.portal.UpdateProfile(r.Context(), profile); err != nil {
		if errors.Is(err, portal.ErrMissingOwner) {
			WriteError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		h.logger.Error().Str("client_id", owner).Str("error", err.Error()).Msg("failed to update profile")
		WriteError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	updated, err := h.portal.GetProfile(r.Context(), owner)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	WriteJSON(w, http.StatusOK, updated)
}
