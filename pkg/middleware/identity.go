// Package middleware provides the HTTP middleware chain shared by the
// OpenBay API: identity extraction, request IDs, and rate limiting.
// Authorization enforcement lives in pkg/authz.
package middleware

import (
	"net/http"

	"github.com/openbay/openbay/pkg/authz"
	"github.com/openbay/openbay/pkg/httputil"
	"github.com/openbay/openbay/pkg/observability"
)

// Identity header names. Authentication happens at the fronting gateway;
// these headers are trusted to carry the verified identity.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserRole  = "X-User-Role"
	HeaderUserEmail = "X-User-Email"
)

// Identity extracts the authenticated principal from the trusted identity
// headers and stores it in the request context. Requests without a valid
// identity get a 401.
func Identity(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderUserID)
			role := authz.Role(r.Header.Get(HeaderUserRole))

			if id == "" {
				httputil.WriteUnauthorized(w, "missing identity")
				return
			}
			if !role.Valid() {
				observability.FromContext(r.Context()).
					WithField("role", string(role)).
					Warn("request with unknown role rejected")
				httputil.WriteUnauthorized(w, "unknown role")
				return
			}

			principal := authz.Principal{
				ID:    id,
				Role:  role,
				Email: r.Header.Get(HeaderUserEmail),
			}
			ctx := authz.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
