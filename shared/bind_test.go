package shared

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/tutor_api/dto"
)

func TestParseAndValidate(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if appErr, ok := GetAppError(err); ok {
				return ResponseJSON(c, appErr.StatusCode, appErr.Message, appErr.Data)
			}
			return ResponseInternalError(c)
		},
	})
	app.Post("/", func(c *fiber.Ctx) error {
		var req dto.LoginRequest
		if err := ParseAndValidate(c, &req); err != nil {
			return err
		}
		return c.SendString(req.Email)
	})

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"valid", `{"email":"a@example.com","password":"x"}`, http.StatusOK, ""},
		{"malformed", `{"email":`, http.StatusBadRequest, `"message":"Invalid request body"`},
		{"invalid", `{"email":"nope"}`, http.StatusBadRequest, `"message":"Validation failed"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req, -1)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d: %s", resp.StatusCode, tt.status, body)
			}
			if tt.message != "" && !strings.Contains(string(body), tt.message) {
				t.Errorf("body = %s, want %s", body, tt.message)
			}
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewUpstreamError(cause, "Upstream failed")

	if !errors.Is(err, cause) {
		t.Error("AppError does not unwrap to its cause")
	}
	appErr, ok := GetAppError(err)
	if !ok || appErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("GetAppError = %+v, %v", appErr, ok)
	}
	if _, ok := GetAppError(cause); ok {
		t.Error("plain error reported as AppError")
	}
}
