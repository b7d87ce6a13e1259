package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKey guards operator endpoints with a static X-API-Key header, compared
// in constant time. An empty configured key disables the guarded endpoints
// entirely rather than leaving them open. Error bodies are written inline;
// this package must not import internal/api, which imports it back.
func APIKey(expected string) func(http.Handler) http.Handler {
	expected = strings.TrimSpace(expected)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := strings.TrimSpace(r.Header.Get("X-API-Key"))
			if got == "" {
				unauthorized(w, "not authenticated")
				return
			}
			if expected == "" || subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
				unauthorized(w, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", "APIKey")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
