package shared

import (
	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/tutor_api/dto"
)

// ParseAndValidate decodes the request body into req and runs its struct
// validation. Both failures come back as 400 AppErrors.
func ParseAndValidate(c *fiber.Ctx, req dto.Validator) error {
	if err := c.BodyParser(req); err != nil {
		return NewBadRequestError(err, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return NewValidationError(err, dto.FormatValidationErrors(err))
	}
	return nil
}
