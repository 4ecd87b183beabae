package middleware

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/transitops/fleetdesk/internal/observability"
)

// Logger is a middleware that logs the start and end of each request
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			log.Printf(
				"%s %s %d %s %s",
				r.Method,
				r.URL.Path,
				ww.Status(),
				time.Since(start),
				r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// Metrics records request counts and latency per route.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		routePattern := r.URL.Path
		if rctx := chiRouteContext(r); rctx != "" {
			routePattern = rctx
		}
		status := strconv.Itoa(ww.Status())
		observability.HTTPRequestsTotal.WithLabelValues(r.Method, routePattern, status).Inc()
		observability.HTTPRequestDuration.WithLabelValues(r.Method, routePattern, status).Observe(time.Since(start).Seconds())
	})
}

// chiRouteContext returns the matched route pattern once routing has run,
// keeping metric label cardinality bounded.
func chiRouteContext(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
