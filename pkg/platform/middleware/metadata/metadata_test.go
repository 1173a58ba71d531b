package metadata

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"certguard/pkg/requestcontext"
)

func TestClientMetadata(t *testing.T) {
	t.Run("copies scope and client ip into context", func(t *testing.T) {
		var scope, ip string
		h := ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope = requestcontext.ClientScope(r.Context())
			ip = requestcontext.ClientIP(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderClientID, " registrar-desk-4 ")
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		h.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "registrar-desk-4", scope)
		assert.Equal(t, "203.0.113.9", ip)
	})

	t.Run("falls back to default scope", func(t *testing.T) {
		var scope string
		h := ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope = requestcontext.ClientScope(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderClientID, strings.Repeat("x", maxClientIDLen+1))
		h.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, requestcontext.DefaultClientScope, scope)
	})
}

func TestClientIPFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:51234"
	assert.Equal(t, "192.0.2.1", ClientIPFromRequest(req))

	req.Header.Set("X-Real-IP", " 198.51.100.7 ")
	assert.Equal(t, "198.51.100.7", ClientIPFromRequest(req))
}
