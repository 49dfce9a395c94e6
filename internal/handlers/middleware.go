package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"airquality-platform/pkg/logging"
)

// RequestIDMiddleware assigns every request a UUID, exposes it in the
// X-Request-ID response header, and stores it in the context for the logger.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), logging.RequestIDKey, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
