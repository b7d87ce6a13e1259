package quota

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sentiq-platform/sentiq/internal/api"
)

// Middleware returns an HTTP middleware that runs the quota gate before the
// wrapped handler. Denied requests get a 429 with the human-readable reason
// and, when a hint exists, a Retry-After header.
func Middleware(gate *Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := gate.Evaluate(r.Context(), clientAddr(r), time.Now())
			if !decision.Allowed {
				if decision.RetryAfter > 0 {
					secs := int(decision.RetryAfter.Seconds())
					if secs < 1 {
						secs = 1
					}
					w.Header().Set("Retry-After", strconv.Itoa(secs))
				}
				api.JSONErrorMessage(w, http.StatusTooManyRequests, decision.Reason)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientAddr resolves the raw client address: first entry of a trusted
// X-Forwarded-For header, else X-Real-IP, else the peer address, else the
// "unknown" sentinel.
func clientAddr(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return UnknownAddress
	}
	return host
}
