package user

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/marcopiovanello/yt-dlp-gui/server/config"
)

func TestLogin(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatal(err)
	}

	auth := &config.Instance().Authentication
	auth.Username = "admin"
	auth.PasswordHash = hash
	defer func() { auth.Username, auth.PasswordHash = "", "" }()

	tests := []struct {
		name     string
		body     string
		expected int
	}{
		{"valid", `{"username":"admin","password":"hunter2"}`, http.StatusOK},
		{"wrong password", `{"username":"admin","password":"nope"}`, http.StatusUnauthorized},
		{"wrong user", `{"username":"root","password":"hunter2"}`, http.StatusUnauthorized},
		{"malformed", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tt.body)))

			if rec.Code != tt.expected {
				t.Fatalf("Expected %d, got %d", tt.expected, rec.Code)
			}
			if rec.Code != http.StatusOK {
				return
			}

			var res LoginResponse
			if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
				t.Fatal(err)
			}

			claims, err := ParseToken(res.Token)
			if err != nil {
				t.Fatalf("Expected a valid token, got %v", err)
			}
			if claims["sub"] != "admin" {
				t.Errorf("Expected subject admin, got %v", claims["sub"])
			}
		})
	}
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/events/ws?token=from-query", nil)
	if got := TokenFromRequest(req); got != "from-query" {
		t.Errorf("Expected query token, got %q", got)
	}

	req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: "from-cookie"})
	if got := TokenFromRequest(req); got != "from-cookie" {
		t.Errorf("Expected cookie token, got %q", got)
	}

	req.Header.Set("Authorization", "Bearer from-header")
	if got := TokenFromRequest(req); got != "from-header" {
		t.Errorf("Expected header token, got %q", got)
	}
}
