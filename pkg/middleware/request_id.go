package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/iddaa-lens/jobrunner/pkg/logger"
)

// RequestIDHeader carries the correlation id in both directions
const RequestIDHeader = "X-Request-ID"

// RequestID tags every request with a correlation id, echoes it back and
// puts a request-scoped logger into the request context
func RequestID(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if _, err := uuid.Parse(requestID); err != nil {
				requestID = uuid.New().String()
			}

			w.Header().Set(RequestIDHeader, requestID)
			ctx := log.WithRequestID(requestID).ToContext(r.Context())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
