package server

import (
	"net/http"
	"sort"
	"strings"

	"github.com/bobmcallan/advisor-portal/internal/handlers"
)

// MethodRouter maps HTTP methods to handlers.
type MethodRouter map[string]http.HandlerFunc

// RouteByMethod dispatches on r.Method. Unmatched methods get a JSON 405
// listing the allowed ones in the Allow header.
func RouteByMethod(w http.ResponseWriter, r *http.Request, routes MethodRouter) {
	if handler, ok := routes[r.Method]; ok {
		handler(w, r)
		return
	}

	allowed := make([]string, 0, len(routes))
	for method := range routes {
		allowed = append(allowed, method)
	}
	sort.Strings(allowed)
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	handlers.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// RouteResourceCollection serves a list (GET) and create (POST) pair on one
// path. A nil handler leaves its method unrouted.
func RouteResourceCollection(w http.ResponseWriter, r *http.Request, list, create http.HandlerFunc) {
	routes := make(MethodRouter, 2)
	if list != nil {
		routes[http.MethodGet] = list
	}
	if create != nil {
		routes[http.MethodPost] = create
	}
	RouteByMethod(w, r, routes)
}
