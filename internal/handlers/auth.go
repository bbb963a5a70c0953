package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bobmcallan/advisor-portal/internal/auth"
	"github.com/bobmcallan/advisor-portal/internal/common"
	"github.com/bobmcallan/advisor-portal/internal/models"
	"github.com/bobmcallan/advisor-portal/internal/portal"
)

// Authenticator is the credential check behind the login endpoint.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*models.Account, error)
}

// ProfileProvisioner creates or patches a client's profile on sign-in.
type ProfileProvisioner interface {
	EnsureProfile(ctx context.Context, user portal.AuthUser) (*models.ClientProfile, error)
}

// AuthHandler handles sign-in and sign-out.
type AuthHandler struct {
	logger   *common.Logger
	auth     Authenticator
	tokens   *auth.TokenIssuer
	profiles ProfileProvisioner
	secure   bool
}

// NewAuthHandler creates a new auth handler. secure marks the session
// cookie Secure and is off in dev mode.
func NewAuthHandler(logger *common.Logger, authenticator Authenticator, tokens *auth.TokenIssuer, profiles ProfileProvisioner, secure bool) *AuthHandler {
	return &AuthHandler{
		logger:   logger,
		auth:     authenticator,
		tokens:   tokens,
		profiles: profiles,
		secure:   secure,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Status    string    `json:"status"`
	ClientID  string    `json:"client_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleLogin handles POST /api/auth/login with a JSON or form body. On
// success the session cookie is set and the token is also returned for
// Bearer use.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req loginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid form body")
			return
		}
		req.Email = r.FormValue("email")
		req.Password = r.FormValue("password")
	}

	account, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeLoginError(w, err)
		return
	}

	if h.profiles != nil {
		_, err := h.profiles.EnsureProfile(r.Context(), portal.AuthUser{
			UID:         account.ClientID,
			Email:       account.Email,
			DisplayName: account.DisplayName,
			Phone:       account.Phone,
		})
		if err != nil {
			h.logger.Warn().Str("client_id", account.ClientID).Str("error", err.Error()).Msg("profile provisioning failed")
		}
	}

	token, expires, err := h.tokens.Issue(account.ClientID, account.Email, account.DisplayName)
	if err != nil {
		h.logger.Error().Str("error", err.Error()).Msg("failed to issue session token")
		WriteError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	http.SetCookie(w, auth.SessionCookie(token, expires, h.secure))
	WriteJSON(w, http.StatusOK, loginResponse{
		Status:    "ok",
		ClientID:  account.ClientID,
		Token:     token,
		ExpiresAt: expires.UTC(),
	})
}

func (h *AuthHandler) writeLoginError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrMissingFields):
		WriteError(w, http.StatusBadRequest, auth.ErrMissingFields.Error())
	case errors.Is(err, auth.ErrUnknownAccount), errors.Is(err, auth.ErrBadCredentials):
		WriteFieldError(w, http.StatusUnauthorized, err.Error(), auth.ErrorField(err))
	case errors.Is(err, auth.ErrRateLimited):
		WriteError(w, http.StatusTooManyRequests, auth.ErrRateLimited.Error())
	default:
		WriteError(w, http.StatusServiceUnavailable, auth.ErrUnavailable.Error())
	}
}

// HandleLogout handles POST /api/auth/logout by clearing the session cookie.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	http.SetCookie(w, auth.ClearSessionCookie(h.secure))
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
