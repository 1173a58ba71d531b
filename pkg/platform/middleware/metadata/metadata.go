package metadata

import (
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"certguard/pkg/requestcontext"
)

// HeaderClientID names the header a caller uses to scope its verification
// session. Callers without it share the default scope.
const HeaderClientID = "X-Client-ID"

// maxClientIDLen bounds the scope key so a caller cannot grow the session
// registry with arbitrarily large keys.
const maxClientIDLen = 64

// ClientMetadata copies the request ID, client IP, User-Agent and client scope
// into the request context. Apply after chi's RequestID middleware.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = requestcontext.WithRequestID(ctx, chimw.GetReqID(ctx))
		ctx = requestcontext.WithClientMetadata(ctx, ClientIPFromRequest(r), r.Header.Get("User-Agent"))
		if scope := ClientScopeFromRequest(r); scope != "" {
			ctx = requestcontext.WithClientScope(ctx, scope)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientScopeFromRequest returns the trimmed X-Client-ID header, or "" when it
// is absent or too long.
func ClientScopeFromRequest(r *http.Request) string {
	scope := strings.TrimSpace(r.Header.Get(HeaderClientID))
	if len(scope) > maxClientIDLen {
		return ""
	}
	return scope
}

// ClientIPFromRequest extracts the real client IP from the request, handling proxies and load balancers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs (client, proxy1, proxy2, ...)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port" or "[::1]:port"
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}

	return "unknown"
}
