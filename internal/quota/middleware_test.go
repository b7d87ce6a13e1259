package quota

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_AllowsUnderLimit(t *testing.T) {
	gate, _ := setupGate(t, testAbuseConfig(), nil)
	handler := Middleware(gate)(okHandler())

	req := httptest.NewRequest("POST", "/api/v1/predict", nil)
	req.RemoteAddr = "203.0.113.7:12345"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_BurstGets429WithRetryAfter(t *testing.T) {
	gate, _ := setupGate(t, testAbuseConfig(), nil)
	handler := Middleware(gate)(okHandler())

	// Two immediate requests from the same peer: the second is a burst.
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/api/v1/predict", nil)
		req.RemoteAddr = "203.0.113.7:12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if i == 0 {
			require.Equal(t, http.StatusOK, rec.Code)
			continue
		}
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		assert.Contains(t, rec.Body.String(), "burst")
	}
}

func TestMiddleware_ForwardedForTakesPriority(t *testing.T) {
	gate, _ := setupGate(t, testAbuseConfig(), nil)
	handler := Middleware(gate)(okHandler())

	// Same peer address, distinct forwarded clients: no shared state, so the
	// back-to-back second request is not a burst.
	addrs := []string{"198.51.100.1, 10.0.0.1", "198.51.100.2, 10.0.0.1"}
	for _, xff := range addrs {
		req := httptest.NewRequest("POST", "/api/v1/predict", nil)
		req.RemoteAddr = "10.0.0.1:4444"
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "xff %q", xff)
	}
}

func TestClientAddr(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		realIP     string
		want       string
	}{
		{"forwarded header first entry", "10.0.0.1:1", "1.2.3.4, 5.6.7.8", "", "1.2.3.4"},
		{"forwarded header single entry", "10.0.0.1:1", "1.2.3.4", "", "1.2.3.4"},
		{"real ip fallback", "10.0.0.1:1", "", "9.9.9.9", "9.9.9.9"},
		{"peer address fallback", "10.0.0.1:1", "", "", "10.0.0.1"},
		{"unparseable peer used verbatim", "garbage", "", "", "garbage"},
		{"nothing available", "", "", "", UnknownAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.want, clientAddr(req))
		})
	}
}

func TestMiddleware_FailOpenKeepsServing(t *testing.T) {
	gate, mr := setupGate(t, testAbuseConfig(), nil)
	mr.Close()
	handler := Middleware(gate)(okHandler())

	req := httptest.NewRequest("POST", "/api/v1/predict", nil)
	req.RemoteAddr = "203.0.113.7:12345"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// Exercises the full middleware round trip with a pre-seeded burst block.
func TestMiddleware_BlockedClientStaysBlocked(t *testing.T) {
	gate, _ := setupGate(t, testAbuseConfig(), nil)
	ctx := httptest.NewRequest("GET", "/", nil).Context()
	now := time.Now()

	gate.Evaluate(ctx, "203.0.113.7", now)
	d := gate.Evaluate(ctx, "203.0.113.7", now.Add(100*time.Millisecond))
	require.False(t, d.Allowed)

	handler := Middleware(gate)(okHandler())
	req := httptest.NewRequest("POST", "/api/v1/predict", nil)
	req.RemoteAddr = "203.0.113.7:12345"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
