package middleware

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// RequireServiceKey guards operational endpoints (admin adjustments, gateway
// callbacks, manual reset runs) behind a shared key whose bcrypt hash lives
// in configuration. An empty hash disables the routes entirely.
func RequireServiceKey(keyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keyHash == "" {
				http.Error(w, "service key not configured", http.StatusForbidden)
				return
			}
			key := r.Header.Get("X-Service-Key")
			if key == "" {
				http.Error(w, "missing service key", http.StatusUnauthorized)
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
				http.Error(w, "invalid service key", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
