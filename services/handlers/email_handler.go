package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/tutor_api/dto"
	"github.com/lac-hong-legacy/tutor_api/shared"
)

type EmailHandler struct {
	emailSvc EmailServiceInterface
}

func NewEmailHandler(emailSvc EmailServiceInterface) *EmailHandler {
	return &EmailHandler{
		emailSvc: emailSvc,
	}
}

// @Summary Send mail
// @Description Send an email on behalf of the caller. The attempt is recorded either way
// @Tags email
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param mailRequest body dto.SendMailRequest true "Mail"
// @Success 200 {object} shared.Response{data=dto.EmailStatusResponse}
// @Failure 500 {object} shared.Response{data=dto.EmailStatusResponse}
// @Router /api/v1/email/sendMail [post]
func (h *EmailHandler) SendMail(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	var req dto.SendMailRequest
	if err := shared.ParseAndValidate(c, &req); err != nil {
		return err
	}

	record, err := h.emailSvc.SendUserMail(c.UserContext(), userID, req)
	if err != nil {
		if record != nil {
			if appErr, ok := shared.GetAppError(err); ok {
				appErr.Data = dto.EmailStatusResponse{Success: false, RecordID: record.ID}
			}
		}
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Email sent", dto.EmailStatusResponse{Success: true, RecordID: record.ID})
}

// @Summary List sent mail
// @Description Email records of the caller. A user id other than the caller's is rejected
// @Tags email
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param id path string false "User ID"
// @Success 200 {object} shared.Response{data=[]model.EmailRecord}
// @Router /api/v1/email/getUserMail/{id} [get]
func (h *EmailHandler) GetUserMail(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	if id := c.Params("id"); id != "" && id != userID {
		return shared.NewForbiddenError(errors.New("foreign mailbox"), "Cannot read another user's mail")
	}

	records, err := h.emailSvc.ListUserMail(userID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", records)
}
