package middleware

import (
	"net/http"
	"time"

	"losflow/pkg/requestcontext"
)

// RequestTime pins one timestamp per request so every write within the request
// (status, flags, checklist stamp, outbox row) carries the same time.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
