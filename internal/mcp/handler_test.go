package mcp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bobmcallan/advisor-portal/internal/auth"
	"github.com/bobmcallan/advisor-portal/internal/common"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

func testIssuer(t *testing.T) *auth.TokenIssuer {
	t.Helper()
	iss, err := auth.NewTokenIssuer([]byte("test-secret"), time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer failed: %v", err)
	}
	return iss
}

func TestWithClientContext_BearerToken(t *testing.T) {
	iss := testIssuer(t)
	token, _, _ := iss.Issue("client-7", "c7@example.com", "")

	req := httptest.NewRequest("POST", "/mcp", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	h := &Handler{tokens: iss}
	cc, ok := GetClientContext(h.withClientContext(req).Context())
	if !ok {
		t.Fatal("expected client context")
	}
	if cc.ClientID != "client-7" || cc.Email != "c7@example.com" {
		t.Errorf("unexpected client context %+v", cc)
	}
}

func TestWithClientContext_SessionCookie(t *testing.T) {
	iss := testIssuer(t)
	token, expires, _ := iss.Issue("client-7", "", "")

	req := httptest.NewRequest("POST", "/mcp", nil)
	req.AddCookie(auth.SessionCookie(token, expires, false))

	h := &Handler{tokens: iss}
	if _, ok := GetClientContext(h.withClientContext(req).Context()); !ok {
		t.Error("expected client context from cookie")
	}
}

func TestWithClientContext_InvalidToken(t *testing.T) {
	req := httptest.NewRequest("POST", "/mcp", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")

	h := &Handler{tokens: testIssuer(t)}
	if _, ok := GetClientContext(h.withClientContext(req).Context()); ok {
		t.Error("expected no client context for an invalid token")
	}
}

func TestHandler_Unauthorized(t *testing.T) {
	h := NewHandler(common.NewSilentLogger(), testIssuer(t), testSource(), "test")

	req := httptest.NewRequest("POST", "/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if !strings.HasPrefix(w.Header().Get("WWW-Authenticate"), "Bearer") {
		t.Errorf("expected Bearer challenge, got %q", w.Header().Get("WWW-Authenticate"))
	}
}

func TestRegisterTools_ListAndCall(t *testing.T) {
	s := mcpserver.NewMCPServer("advisor-portal", "test", mcpserver.WithToolCapabilities(true))
	if n := RegisterTools(s, testSource()); n != 4 {
		t.Fatalf("expected 4 tools, got %d", n)
	}

	result := s.HandleMessage(t.Context(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`))
	resp, ok := result.(mcpgo.JSONRPCResponse)
	if !ok {
		t.Fatalf("expected JSONRPCResponse, got %T", result)
	}
	raw, _ := json.Marshal(resp.Result)
	var listed mcpgo.ListToolsResult
	if err := json.Unmarshal(raw, &listed); err != nil {
		t.Fatalf("failed to unmarshal ListToolsResult: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range listed.Tools {
		names[tool.Name] = true
	}
	for _, name := range []string{"get_version", "get_unread_count", "list_messages", "get_latest_report"} {
		if !names[name] {
			t.Errorf("expected tool %s in listing", name)
		}
	}

	call := json.RawMessage(`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"get_unread_count","arguments":{}}}`)
	result = s.HandleMessage(asClient("c1"), call)
	resp, ok = result.(mcpgo.JSONRPCResponse)
	if !ok {
		t.Fatalf("expected JSONRPCResponse, got %T", result)
	}
	raw, _ = json.Marshal(resp.Result)
	if !strings.Contains(string(raw), `\"unread\":2`) {
		t.Errorf("expected unread count 2 in %s", raw)
	}
}
