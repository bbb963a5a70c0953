package handlers

import (
	"net/http"

	"github.com/bobmcallan/advisor-portal/internal/auth"
)

// SessionGuard admits requests that carry a valid session token.
type SessionGuard struct {
	tokens *auth.TokenIssuer
}

// NewSessionGuard creates a guard on tokens.
func NewSessionGuard(tokens *auth.TokenIssuer) *SessionGuard {
	return &SessionGuard{tokens: tokens}
}

// IsLoggedIn reports whether r carries a valid session, with its claims.
func (g *SessionGuard) IsLoggedIn(r *http.Request) (bool, *auth.Claims) {
	claims, err := g.tokens.FromRequest(r)
	if err != nil {
		return false, nil
	}
	return true, claims
}

// Require wraps next so it only runs for signed-in clients, with the claims
// in the request context. Others get a JSON 401.
func (g *SessionGuard) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok, claims := g.IsLoggedIn(r)
		if !ok {
			WriteError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	}
}

// ownerID returns the signed-in client of a guarded request.
func ownerID(r *http.Request) string {
	if c := auth.ClaimsFromContext(r.Context()); c != nil {
		return c.ClientID()
	}
	return ""
}
