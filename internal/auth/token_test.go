package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	iss, err := NewTokenIssuer([]byte("test-secret"), time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer failed: %v", err)
	}
	return iss
}

func TestNewTokenIssuer_RequiresSecret(t *testing.T) {
	if _, err := NewTokenIssuer(nil, time.Hour); err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestTokenIssuer_IssueAndValidate(t *testing.T) {
	iss := newTestIssuer(t)

	token, expires, err := iss.Issue("client-1", "ada@example.com", "Ada")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if time.Until(expires) <= 59*time.Minute {
		t.Errorf("expected expiry about an hour out, got %v", expires)
	}

	claims, err := iss.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.ClientID() != "client-1" {
		t.Errorf("expected client-1, got %s", claims.ClientID())
	}
	if claims.Email != "ada@example.com" || claims.Name != "Ada" {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestTokenIssuer_RejectsEmptyClient(t *testing.T) {
	iss := newTestIssuer(t)
	if _, _, err := iss.Issue("", "a@b.c", ""); err == nil {
		t.Error("expected error for empty client ID")
	}
}

func TestTokenIssuer_Expired(t *testing.T) {
	iss := newTestIssuer(t)
	issuedAt := time.Now().Add(-2 * time.Hour)
	iss.now = func() time.Time { return issuedAt }
	token, _, err := iss.Issue("client-1", "", "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	iss.now = time.Now
	if _, err := iss.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	iss := newTestIssuer(t)
	token, _, _ := iss.Issue("client-1", "", "")

	other, _ := NewTokenIssuer([]byte("other-secret"), time.Hour)
	if _, err := other.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenIssuer_RejectsNoneAlgorithm(t *testing.T) {
	iss := newTestIssuer(t)
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "client-1",
		Issuer:    tokenIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to build unsigned token: %v", err)
	}
	if _, err := iss.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for alg none, got %v", err)
	}
}

func TestTokenIssuer_Garbage(t *testing.T) {
	iss := newTestIssuer(t)
	if _, err := iss.Validate("not.a.jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestFromRequest_CookieAndBearer(t *testing.T) {
	iss := newTestIssuer(t)
	token, expires, _ := iss.Issue("client-1", "", "")

	r := httptest.NewRequest("GET", "/api/profile", nil)
	r.AddCookie(SessionCookie(token, expires, false))
	if c, err := iss.FromRequest(r); err != nil || c.ClientID() != "client-1" {
		t.Errorf("cookie: expected client-1, got %v %v", c, err)
	}

	r = httptest.NewRequest("GET", "/api/profile", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	if c, err := iss.FromRequest(r); err != nil || c.ClientID() != "client-1" {
		t.Errorf("bearer: expected client-1, got %v %v", c, err)
	}

	r = httptest.NewRequest("GET", "/api/profile", nil)
	if _, err := iss.FromRequest(r); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken without credentials, got %v", err)
	}
}

func TestClearSessionCookie(t *testing.T) {
	c := ClearSessionCookie(true)
	if c.Name != SessionCookieName || c.Value != "" || c.MaxAge != -1 || !c.Secure {
		t.Errorf("unexpected cookie %+v", c)
	}
}
