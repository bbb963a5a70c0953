package server

import "net/http"

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	guard := s.app.Guard

	// Route gate and single-page app shell
	mux.HandleFunc("/login", s.app.PageHandler.HandleLogin)
	mux.HandleFunc("/dashboard", s.app.PageHandler.HandleDashboard)
	mux.HandleFunc("/dashboard/", s.app.PageHandler.HandleDashboard)
	mux.HandleFunc("/", s.app.PageHandler.HandleRoot)

	// MCP endpoint (JSON-RPC over HTTP)
	if s.app.MCPHandler != nil {
		mux.Handle("/mcp", s.app.MCPHandler)
	}

	// Session
	mux.HandleFunc("/api/auth/login", s.app.AuthHandler.HandleLogin)
	mux.HandleFunc("/api/auth/logout", s.app.AuthHandler.HandleLogout)

	// Client data, scoped to the session owner
	mux.HandleFunc("/api/profile", guard.Require(s.app.ProfileHandler.ServeHTTP))
	mux.HandleFunc("/api/messages", guard.Require(func(w http.ResponseWriter, r *http.Request) {
		RouteResourceCollection(w, r, s.app.MessagesHandler.HandleList, s.app.MessagesHandler.HandleSend)
	}))
	mux.HandleFunc("/api/messages/read", guard.Require(s.app.MessagesHandler.HandleMarkRead))
	mux.HandleFunc("/api/reports", guard.Require(s.app.ReportsHandler.HandleList))
	mux.HandleFunc("/api/reports/{id}/{action}", guard.Require(s.app.ReportsHandler.HandleAction))
	mux.HandleFunc("/api/badges", guard.Require(s.app.BadgesHandler.ServeHTTP))

	// Live feed (websocket; authenticates before upgrading)
	mux.Handle("/api/ws", s.app.FeedHandler)

	mux.HandleFunc("/api/health", s.app.HealthHandler.ServeHTTP)
	mux.HandleFunc("/api/version", s.app.VersionHandler.ServeHTTP)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.handleNotFound)

	return mux
}

// handleNotFound returns a JSON 404 for unmatched API routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":"Not Found","message":"The requested endpoint does not exist"}`))
}
