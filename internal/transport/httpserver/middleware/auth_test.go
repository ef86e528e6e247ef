package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"splitledger/internal/auth"
	"splitledger/internal/config"
	"splitledger/pkg/logger"
)

func echoUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	_, _ = w.Write([]byte(userID))
}

func TestJWTAuthAcceptsIssuedToken(t *testing.T) {
	tokens, err := auth.NewTokenManager("secret", time.Hour)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	token, _, err := tokens.Issue("user-1", "one@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	handler := NewJWTAuth(config.AuthConfig{}, tokens, logger.Discard()).Middleware(http.HandlerFunc(echoUser))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "user-1" {
		t.Fatalf("expected user-1, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestJWTAuthRejectsMissingOrBadToken(t *testing.T) {
	tokens, err := auth.NewTokenManager("secret", time.Hour)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	handler := NewJWTAuth(config.AuthConfig{}, tokens, logger.Discard()).Middleware(http.HandlerFunc(echoUser))

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
}

func TestJWTAuthSkipUsesMockUser(t *testing.T) {
	cfg := config.AuthConfig{SkipAuth: true, MockUserID: "mock-user"}
	handler := NewJWTAuth(cfg, nil, logger.Discard()).Middleware(http.HandlerFunc(echoUser))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Body.String() != "mock-user" {
		t.Fatalf("expected mock-user, got %q", rec.Body.String())
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	handler := NewCORS([]string{"http://localhost:5173"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/groups", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("expected preflight allowed, got %d %v", rec.Code, rec.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/groups", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("expected unknown origin not echoed")
	}
}
