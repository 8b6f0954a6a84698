package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"rostersync/appctx"
	"rostersync/models"
)

const RequestIDHeader = "X-Request-ID"

// RequestID tags every request with a correlation ID for the logs. Queue deliveries
// reuse the task name so retries of the same task share an ID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = r.Header.Get(models.TaskNameHeader)
		}
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(appctx.SetRequestID(r.Context(), requestID)))
	})
}
