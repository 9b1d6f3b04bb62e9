package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/carlo/audit-trail/internal/audit"
)

// Trace puts a trace id into the request context for audit writes. The client
// may supply one via X-Trace-Id; otherwise the chi request id is used, with a
// fresh UUID as the last resort. Use after the RequestID middleware.
func Trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Trace-Id")
		if id == "" {
			id = chimw.GetReqID(r.Context())
		}
		if id == "" {
			id = uuid.NewString()
		}
		ctx := audit.WithTraceID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
