package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/bobmcallan/advisor-portal/internal/common"
)

// PageHandler gates the browser routes and serves the single-page app.
type PageHandler struct {
	logger    *common.Logger
	staticDir string
	guard     *SessionGuard
}

// NewPageHandler creates a page handler serving the built app from
// staticDir.
func NewPageHandler(logger *common.Logger, staticDir string, guard *SessionGuard) *PageHandler {
	abs, err := filepath.Abs(staticDir)
	if err != nil {
		abs = staticDir
	}
	return &PageHandler{logger: logger, staticDir: abs, guard: guard}
}

// HandleLogin serves GET /login. Signed-in clients go to the dashboard.
func (h *PageHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if ok, _ := h.guard.IsLoggedIn(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	h.serveShell(w, r, http.StatusOK)
}

// HandleDashboard serves /dashboard and its messages and reports views.
// Anonymous visitors go to the login page.
func (h *PageHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if ok, _ := h.guard.IsLoggedIn(r); !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	h.serveShell(w, r, http.StatusOK)
}

// HandleRoot redirects / to the dashboard and serves built assets for every
// other path. Unknown paths get the app shell with a 404 so the app can
// render its not-found view.
func (h *PageHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	fullPath, ok := h.resolve(r.URL.Path)
	if ok {
		if info, err := os.Stat(fullPath); err == nil && !info.IsDir() {
			http.ServeFile(w, r, fullPath)
			return
		}
	}
	h.serveShell(w, r, http.StatusNotFound)
}

// resolve maps a URL path into staticDir, refusing paths that escape it.
func (h *PageHandler) resolve(urlPath string) (string, bool) {
	fullPath, err := filepath.Abs(filepath.Join(h.staticDir, filepath.FromSlash(urlPath)))
	if err != nil {
		return "", false
	}
	if fullPath != h.staticDir && !strings.HasPrefix(fullPath, h.staticDir+string(filepath.Separator)) {
		return "", false
	}
	return fullPath, true
}

func (h *PageHandler) serveShell(w http.ResponseWriter, r *http.Request, status int) {
	data, err := os.ReadFile(filepath.Join(h.staticDir, "index.html"))
	if err != nil {
		if h.logger != nil {
			h.logger.Error().Str("static_dir", h.staticDir).Str("error", err.Error()).Msg("app shell missing")
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		w.Write(data)
	}
}
