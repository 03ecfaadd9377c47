package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout creates a middleware that bounds each request with a deadline.
// Handlers observe the deadline through the request context; long-running
// work is expected to check ctx.Done and bail out.
func Timeout(timeout time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			r = r.WithContext(ctx)
			next.ServeHTTP(w, r)
		})
	}
}
