// Package version stamps responses with the running build version.
package version

import "net/http"

// HeaderServiceVersion carries the build version on every response.
const HeaderServiceVersion = "X-Service-Version"

// Header creates middleware that sets the service version header before the
// handler writes its response.
//
// Usage:
//
//	r.Use(version.Header(buildVersion))
func Header(version string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if version != "" {
				w.Header().Set(HeaderServiceVersion, version)
			}
			next.ServeHTTP(w, r)
		})
	}
}
