package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/tutor_api/dto"
	"github.com/lac-hong-legacy/tutor_api/shared"
)

// countingLimiter allows max requests per identifier.
type countingLimiter struct {
	max    int
	err    error
	counts map[string]int
}

func (l *countingLimiter) IsAllowed(ctx context.Context, identifier, endpointType string) (*dto.RateLimitInfo, error) {
	if l.err != nil {
		return nil, l.err
	}
	key := endpointType + "|" + identifier
	l.counts[key]++
	reset := time.Now().Add(time.Minute)
	remaining := l.max - l.counts[key]
	if remaining < 0 {
		remaining = 0
	}
	return &dto.RateLimitInfo{Allowed: l.counts[key] <= l.max, Remaining: remaining, ResetTime: &reset}, nil
}

func TestRateLimitBlocksAfterWindowIsFull(t *testing.T) {
	limiter := &countingLimiter{max: 2, counts: map[string]int{}}
	app := fiber.New()
	app.Post("/login", NewRateLimitMiddleware(limiter).Limit("login"), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	send := func(email string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"`+email+`"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", "10.0.0.1")
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		return resp
	}

	for i := 0; i < 2; i++ {
		if resp := send("a@example.com"); resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d status = %d", i, resp.StatusCode)
		}
	}

	resp := send("A@example.com")
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("X-RateLimit-Remaining") != "0" || resp.Header.Get(fiber.HeaderRetryAfter) == "" {
		t.Errorf("headers = %v", resp.Header)
	}

	// the window is keyed by ip and email
	if resp := send("b@example.com"); resp.StatusCode != http.StatusOK {
		t.Errorf("other email status = %d, want 200", resp.StatusCode)
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	limiter := &countingLimiter{err: errors.New("redis down")}
	app := fiber.New()
	app.Get("/", NewRateLimitMiddleware(limiter).Limit("chat"), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
}

func TestGetIdentifierPrefersUser(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		c.Locals(shared.UserID, "user-9")
		return c.SendString(getIdentifier(c, "chat"))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	buf := new(strings.Builder)
	_, _ = io.Copy(buf, resp.Body)
	if buf.String() != "user-9" {
		t.Errorf("identifier = %q, want user-9", buf.String())
	}
}
