package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"quorum/pkg/requestcontext"
)

// WithRequestID assigns each request a UUID (or propagates the caller's
// X-Request-ID) for log correlation.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
