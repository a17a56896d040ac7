package web

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/hpungsan/stalker/internal/errors"
)

const bearerPrefix = "Bearer "

// requirePassword rejects requests without the bearer password.
func (h *Handlers) requirePassword(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) || !secretEqual(strings.TrimPrefix(header, bearerPrefix), h.auth.Password) {
			renderError(w, errors.NewUnauthorized("incorrect password"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secretEqual compares in constant time. An empty secret never matches.
func secretEqual(got, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
