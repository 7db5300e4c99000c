package middlewares

import (
	"net/http"

	"github.com/marcopiovanello/yt-dlp-gui/server/user"
)

// Authenticated rejects requests without a valid token.
func Authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := user.TokenFromRequest(r)
		if token == "" {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		if _, err := user.ParseToken(token); err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
