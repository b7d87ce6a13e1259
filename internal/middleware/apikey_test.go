package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func apikeyHandler(expected string) http.Handler {
	return APIKey(expected)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestAPIKey_ValidKey(t *testing.T) {
	handler := apikeyHandler("secret-key")

	req := httptest.NewRequest("GET", "/api/v1/inferences", nil)
	req.Header.Set("X-API-Key", "secret-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAPIKey_MissingKey(t *testing.T) {
	handler := apikeyHandler("secret-key")

	req := httptest.NewRequest("GET", "/api/v1/inferences", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") != "APIKey" {
		t.Fatalf("expected WWW-Authenticate: APIKey, got %q", rec.Header().Get("WWW-Authenticate"))
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected application/json, got %q", got)
	}
	if body := rec.Body.String(); body != `{"error":"not authenticated"}` {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestAPIKey_WrongKey(t *testing.T) {
	handler := apikeyHandler("secret-key")

	req := httptest.NewRequest("GET", "/api/v1/inferences", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != `{"error":"unauthorized"}` {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestAPIKey_EmptyConfiguredKeyDisablesEndpoint(t *testing.T) {
	handler := apikeyHandler("")

	req := httptest.NewRequest("GET", "/api/v1/inferences", nil)
	req.Header.Set("X-API-Key", "anything")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAPIKey_TrimsWhitespace(t *testing.T) {
	handler := apikeyHandler("secret-key")

	req := httptest.NewRequest("GET", "/api/v1/inferences", nil)
	req.Header.Set("X-API-Key", "  secret-key  ")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
