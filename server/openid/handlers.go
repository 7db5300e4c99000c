package openid

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marcopiovanello/yt-dlp-gui/server/config"
	"github.com/marcopiovanello/yt-dlp-gui/server/user"
)

const stateCookieName = "oid-state"

var errNotWhitelisted = errors.New("email is not whitelisted")

func Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		HttpOnly: true,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, oauth2Config.AuthCodeURL(state), http.StatusFound)
}

func SingIn(w http.ResponseWriter, r *http.Request) {
	state, err := r.Cookie(stateCookieName)
	if err != nil || r.URL.Query().Get("state") != state.Value {
		http.Error(w, "state did not match", http.StatusBadRequest)
		return
	}

	oauth2Token, err := oauth2Config.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		http.Error(w, "no id_token field in oauth2 token", http.StatusUnauthorized)
		return
	}

	idToken, err := verifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var claims struct {
		Email    string `json:"email"`
		Verified bool   `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if !whitelisted(claims.Email) {
		slog.Warn("rejected openid login", slog.String("email", claims.Email))
		http.Error(w, errNotWhitelisted.Error(), http.StatusForbidden)
		return
	}

	token, expiresAt, err := user.IssueToken(idToken.Subject, map[string]any{
		"email": claims.Email,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	user.SetTokenCookie(w, token, expiresAt)

	http.Redirect(w, r, redirectTarget(), http.StatusFound)
}

// Logout drops the local token and, when supported, ends the provider
// session too.
func Logout(w http.ResponseWriter, r *http.Request) {
	if endSessionURL == "" {
		user.Logout(w, r)
		return
	}

	user.ClearTokenCookie(w)
	http.Redirect(w, r, endSessionURL, http.StatusFound)
}

// Middleware accepts requests carrying a token whose email is whitelisted.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := user.ParseToken(user.TokenFromRequest(r))
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		email, _ := claims["email"].(string)
		if !whitelisted(email) {
			http.Error(w, errNotWhitelisted.Error(), http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// an empty whitelist admits every authenticated email
func whitelisted(email string) bool {
	list := config.Instance().OpenId.EmailWhitelist
	if len(list) == 0 {
		return email != ""
	}
	return slices.ContainsFunc(list, func(s string) bool {
		return strings.EqualFold(s, email)
	})
}

func redirectTarget() string {
	if base := config.Instance().Server.BaseURL; base != "" {
		return base
	}
	return "/"
}
