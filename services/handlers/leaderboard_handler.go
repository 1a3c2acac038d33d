package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/tutor_api/middleware"
	"github.com/lac-hong-legacy/tutor_api/shared"
)

type LeaderboardHandler struct {
	leaderboardSvc LeaderboardServiceInterface
}

func NewLeaderboardHandler(leaderboardSvc LeaderboardServiceInterface) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboardSvc: leaderboardSvc,
	}
}

// @Summary Get Leaderboard
// @Description Top users by correct answers. With a bearer token the caller's own rank is included
// @Tags leaderboard
// @Accept json
// @Produce json
// @Param limit query int false "Limit results (default 10, max 100)"
// @Success 200 {object} shared.Response{data=dto.LeaderboardResponse}
// @Router /api/v1/leaderboard [get]
func (h *LeaderboardHandler) GetLeaderboard(c *fiber.Ctx) error {
	limit := 0
	if l := c.Query("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			return shared.NewBadRequestError(err, "limit must be a positive integer")
		}
		limit = parsed
	}

	leaderboard, err := h.leaderboardSvc.Top(limit, middleware.UserIDFrom(c))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", leaderboard)
}
