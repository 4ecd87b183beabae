package middleware

import (
	"encoding/json"
	"log"
	"net/http"
	"runtime/debug"
)

// Recovery converts a panicking handler into a 500 instead of taking the
// whole dispatch server down.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("panic in %s %s: %v\n%s", r.Method, r.URL.Path, err, debug.Stack())

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{
					"error":   "internal_error",
					"message": "an unexpected error occurred",
				})
			}
		}()

		next.ServeHTTP(w, r)
	})
}
