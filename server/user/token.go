package user

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/marcopiovanello/yt-dlp-gui/server/config"
)

const (
	TokenCookieName = "jwt-yt-dlp-gui"
	tokenLifetime   = 30 * 24 * time.Hour
)

var (
	fallbackSecret     []byte
	fallbackSecretOnce sync.Once
)

// secret returns the configured signing key. Without one a random key is
// used, invalidating all tokens on restart.
func secret() []byte {
	if s := config.Instance().Authentication.TokenSecret; s != "" {
		return []byte(s)
	}
	fallbackSecretOnce.Do(func() {
		fallbackSecret = []byte(uuid.NewString() + uuid.NewString())
	})
	return fallbackSecret
}

// IssueToken signs a token for subject carrying the extra claims.
func IssueToken(subject string, extra map[string]any) (string, time.Time, error) {
	expiresAt := time.Now().Add(tokenLifetime)

	claims := jwt.MapClaims{
		"sub": subject,
		"exp": expiresAt.Unix(),
		"iat": time.Now().Unix(),
		"jti": uuid.NewString(),
	}
	for k, v := range extra {
		claims[k] = v
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret())
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

// ParseToken validates a token issued by IssueToken and returns its claims.
func ParseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return secret(), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// TokenFromRequest reads the token from the Authorization header, falling
// back to the cookie set at login.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie(TokenCookieName); err == nil {
		return c.Value
	}
	// websocket clients cannot set headers
	return r.URL.Query().Get("token")
}

func SetTokenCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   false,
		Expires:  expiresAt,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    "",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Path:     "/",
	})
}
