package middleware

import (
	"net/http"
	"time"

	"github.com/ekaya-inc/ekaya-quality/pkg/metrics"
)

// unmatchedRoute labels requests no mux pattern matched, keeping arbitrary
// paths out of metric labels.
const unmatchedRoute = "unmatched"

// Metrics returns middleware that records request counts and latency per mux
// route pattern. It must wrap the *http.ServeMux directly or from further out
// so the pattern is set on the request by the time the handler returns.
func Metrics(recorder *metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if recorder == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			route := r.Pattern
			if route == "" {
				route = unmatchedRoute
			}
			recorder.ObserveRequest(r.Method, route, wrapped.statusCode, time.Since(start))
		})
	}
}
