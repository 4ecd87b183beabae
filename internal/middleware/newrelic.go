package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// NewRelicMiddleware instruments every request as a transaction named by
// its chi route pattern, so /v1/bookings/{id}/assign aggregates into one
// transaction instead of one per booking id.
func NewRelicMiddleware(app *newrelic.Application) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if app == nil {
				next.ServeHTTP(w, r)
				return
			}

			routePattern := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					routePattern = pattern
				}
			}

			txn := app.StartTransaction(r.Method + " " + routePattern)
			defer txn.End()

			txn.AddAttribute("http.route", routePattern)
			txn.SetWebRequestHTTP(r)
			w = txn.SetWebResponse(w)

			r = newrelic.RequestWithTransactionContext(r, txn)

			next.ServeHTTP(w, r)
		})
	}
}
