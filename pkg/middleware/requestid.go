package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/openbay/openbay/pkg/observability"
)

// HeaderRequestID carries the request ID, generated when the client does not
// supply one.
const HeaderRequestID = "X-Request-Id"

// RequestID assigns each request an ID, echoes it in the response, and
// enriches the context logger with it.
func RequestID(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(HeaderRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(HeaderRequestID, requestID)

			ctx := observability.WithRequestID(r.Context(), requestID)
			ctx = observability.WithLogger(ctx, logger.WithField("request_id", requestID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
