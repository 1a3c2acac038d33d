package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/tutor_api/dto"
	"github.com/lac-hong-legacy/tutor_api/shared"
)

type UserHandler struct {
	userSvc UserServiceInterface
}

func NewUserHandler(userSvc UserServiceInterface) *UserHandler {
	return &UserHandler{
		userSvc: userSvc,
	}
}

// @Summary Get user profile
// @Description Get user profile
// @Tags user
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Success 200 {object} shared.Response{data=dto.UserProfileResponse}
// @Router /api/v1/user/profile [get]
func (h *UserHandler) GetUserProfile(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	profile, err := h.userSvc.GetUserProfile(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", profile)
}

// @Summary Update user profile
// @Description Update grade, gender, date of birth and guardian fields
// @Tags user
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param updateRequest body dto.UpdateProfileRequest true "User profile"
// @Success 200 {object} shared.Response{data=dto.UserProfileResponse}
// @Router /api/v1/user/profile [put]
func (h *UserHandler) UpdateUserProfile(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	var req dto.UpdateProfileRequest
	if err := shared.ParseAndValidate(c, &req); err != nil {
		return err
	}

	profile, err := h.userSvc.UpdateUserProfile(c.UserContext(), userID, req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Profile updated successfully", profile)
}

// @Summary Replace pending subjects
// @Description Replace the list of subjects waiting for a lesson
// @Tags user
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param subjectsRequest body dto.UpdateSubjectsRequest true "Subjects"
// @Success 200 {object} shared.Response{data=dto.UserProfileResponse}
// @Router /api/v1/user/subjects [put]
func (h *UserHandler) UpdateSubjects(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	var req dto.UpdateSubjectsRequest
	if err := shared.ParseAndValidate(c, &req); err != nil {
		return err
	}

	profile, err := h.userSvc.UpdatePendingSubjects(c.UserContext(), userID, req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Subjects updated successfully", profile)
}
