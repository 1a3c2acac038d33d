package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/tutor_api/dto"
	"github.com/lac-hong-legacy/tutor_api/shared"
	log "github.com/sirupsen/logrus"
)

type Limiter interface {
	IsAllowed(ctx context.Context, identifier, endpointType string) (*dto.RateLimitInfo, error)
}

type RateLimitMiddleware struct {
	limiter Limiter
}

func NewRateLimitMiddleware(limiter Limiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter}
}

// Limit applies the fixed window configured for endpointType.
func (m *RateLimitMiddleware) Limit(endpointType string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier := getIdentifier(c, endpointType)

		info, err := m.limiter.IsAllowed(c.UserContext(), identifier, endpointType)
		if err != nil {
			log.Printf("Rate limit check error for %s (%s): %v", endpointType, identifier, err)
			// fail open
			return c.Next()
		}

		addRateLimitHeaders(c, info)

		if !info.Allowed {
			return handleRateLimitExceeded(c, endpointType, info)
		}

		return c.Next()
	}
}

// ==================== HELPER FUNCTIONS ====================

func getIdentifier(c *fiber.Ctx, endpointType string) string {
	switch endpointType {
	case "login", "register":
		email := getEmailFromRequest(c)
		if email != "" {
			return fmt.Sprintf("%s:%s", getClientIP(c), strings.ToLower(email))
		}
		return getClientIP(c)

	case "chat", "analyze", "send_mail":
		if userID := UserIDFrom(c); userID != "" {
			return userID
		}
		return getClientIP(c)

	default:
		return getClientIP(c)
	}
}

func getEmailFromRequest(c *fiber.Ctx) string {
	var reqBody struct {
		Email string `json:"email"`
	}
	if len(c.Body()) > 0 {
		if err := shared.JSONAPI.Unmarshal(c.Body(), &reqBody); err == nil {
			return reqBody.Email
		}
	}
	return ""
}

func addRateLimitHeaders(c *fiber.Ctx, info *dto.RateLimitInfo) {
	if info == nil {
		return
	}

	if info.Remaining >= 0 {
		c.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	}

	if info.ResetTime != nil {
		c.Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
		if !info.Allowed {
			retryAfter := int(time.Until(*info.ResetTime).Seconds())
			if retryAfter > 0 {
				c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			}
		}
	}
}

func handleRateLimitExceeded(c *fiber.Ctx, endpointType string, info *dto.RateLimitInfo) error {
	message := getRateLimitMessage(endpointType)

	response := map[string]interface{}{
		"error": "Rate limit exceeded",
	}
	if info.ResetTime != nil {
		response["retryAfter"] = int(time.Until(*info.ResetTime).Seconds())
	}

	return shared.ResponseJSON(c, http.StatusTooManyRequests, message, response)
}

func getRateLimitMessage(endpointType string) string {
	messages := map[string]string{
		"login":     "Too many login attempts. Please try again later.",
		"register":  "Too many registration attempts. Please try again later.",
		"refresh":   "Too many token refresh requests. Please try again later.",
		"chat":      "Too many messages. Please slow down.",
		"analyze":   "Too many analysis requests. Please try again later.",
		"send_mail": "Too many emails sent. Please try again later.",
	}

	if message, exists := messages[endpointType]; exists {
		return message
	}

	return "Too many requests. Please try again later."
}

func getClientIP(c *fiber.Ctx) string {
	forwarded := c.Get("X-Forwarded-For")
	if forwarded != "" {
		ips := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(ips[0]); ip != "" {
			return ip
		}
	}

	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	if cfIP := c.Get("CF-Connecting-IP"); cfIP != "" {
		return cfIP
	}

	ip, _, err := net.SplitHostPort(c.Context().RemoteAddr().String())
	if err != nil {
		return c.Context().RemoteAddr().String()
	}

	return ip
}
