package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/tutor_api/shared"
)

type MediaHandler struct {
	mediaSvc MediaServiceInterface
}

func NewMediaHandler(mediaSvc MediaServiceInterface) *MediaHandler {
	return &MediaHandler{
		mediaSvc: mediaSvc,
	}
}

// @Summary Upload profile image
// @Description Upload a profile image (JPG, PNG, WEBP, max 5MB)
// @Tags user
// @Accept multipart/form-data
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param image formData file true "Profile image"
// @Success 200 {object} shared.Response{data=dto.ProfileImageResponse}
// @Router /api/v1/user/profile/image [post]
func (h *MediaHandler) UploadProfileImage(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	file, err := c.FormFile("image")
	if err != nil {
		return shared.NewBadRequestError(err, "No image file provided")
	}

	response, err := h.mediaSvc.UploadProfileImage(c.UserContext(), userID, file)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Image uploaded successfully", response)
}
