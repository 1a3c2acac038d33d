package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

type fakeVerifier struct {
	tokens map[string]string
}

func (f fakeVerifier) ExtractTokenFromHeader(authHeader string) (string, error) {
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func (f fakeVerifier) VerifyJWTToken(token string) (string, error) {
	if id, ok := f.tokens[token]; ok {
		return id, nil
	}
	return "", errors.New("invalid token")
}

func newAuthApp(handler fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Get("/", handler, func(c *fiber.Ctx) error {
		return c.SendString("user=" + UserIDFrom(c))
	})
	return app
}

func get(t *testing.T, app *fiber.App, authHeader string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestRequiredAuth(t *testing.T) {
	m := NewAuthMiddleware(fakeVerifier{tokens: map[string]string{"good": "user-1", "empty": ""}})
	app := newAuthApp(m.RequiredAuth())

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"no header", "", http.StatusUnauthorized, ""},
		{"not bearer", "Basic abc", http.StatusUnauthorized, ""},
		{"unknown token", "Bearer bad", http.StatusForbidden, ""},
		{"token without subject", "Bearer empty", http.StatusForbidden, ""},
		{"valid", "Bearer good", http.StatusOK, "user=user-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := get(t, app, tt.header)
			if status != tt.status {
				t.Fatalf("status = %d, want %d (%s)", status, tt.status, body)
			}
			if tt.body != "" && body != tt.body {
				t.Errorf("body = %q, want %q", body, tt.body)
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	m := NewAuthMiddleware(fakeVerifier{tokens: map[string]string{"good": "user-1"}})
	app := newAuthApp(m.OptionalAuth())

	for header, want := range map[string]string{
		"":            "user=",
		"Bearer bad":  "user=",
		"Bearer good": "user=user-1",
	} {
		status, body := get(t, app, header)
		if status != http.StatusOK || body != want {
			t.Errorf("header %q: %d %q, want 200 %q", header, status, body, want)
		}
	}
}
