// Package mcp exposes the signed-in client's portal data as MCP tools over
// streamable HTTP.
package mcp

import (
	"encoding/json"
	"net/http"

	"github.com/bobmcallan/advisor-portal/internal/auth"
	"github.com/bobmcallan/advisor-portal/internal/common"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Handler is the HTTP handler for the MCP endpoint.
// It wraps mcp-go's StreamableHTTPServer and delegates to it.
type Handler struct {
	streamable *mcpserver.StreamableHTTPServer
	logger     *common.Logger
	tokens     *auth.TokenIssuer
}

// NewHandler creates the MCP handler with the portal tools registered.
func NewHandler(logger *common.Logger, tokens *auth.TokenIssuer, src DataSource, version string) *Handler {
	mcpSrv := mcpserver.NewMCPServer(
		"advisor-portal",
		version,
		mcpserver.WithToolCapabilities(true),
	)

	toolCount := RegisterTools(mcpSrv, src)

	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithStateLess(true),
	)

	logger.Info().Int("tools", toolCount).Msg("MCP handler initialized")

	return &Handler{
		streamable: streamable,
		logger:     logger,
		tokens:     tokens,
	}
}

// ServeHTTP attaches the calling client from the session token and
// delegates to the mcp-go StreamableHTTPServer. Calls without a valid
// session get a 401.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r = h.withClientContext(r)

	if _, ok := GetClientContext(r.Context()); !ok {
		w.Header().Set("WWW-Authenticate", `Bearer realm="advisor-portal"`)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{
			"error":             "unauthorized",
			"error_description": "Authentication required to access MCP endpoint",
		})
		return
	}

	h.streamable.ServeHTTP(w, r)
}

// withClientContext validates the Bearer token or session cookie and
// attaches the client to the request context. On failure the request is
// returned unchanged.
func (h *Handler) withClientContext(r *http.Request) *http.Request {
	if h.tokens == nil {
		return r
	}
	claims, err := h.tokens.FromRequest(r)
	if err != nil {
		return r
	}
	ctx := WithClientContext(r.Context(), ClientContext{ClientID: claims.ClientID(), Email: claims.Email})
	return r.WithContext(ctx)
}
