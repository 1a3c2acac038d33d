package dto

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/lac-hong-legacy/tutor_api/model"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("strong_password", validateStrongPassword)
	validate.RegisterValidation("subject", validateSubject)
	validate.RegisterValidation("single_line", validateSingleLine)
}

func GetValidator() *validator.Validate {
	return validate
}

func validateStrongPassword(fl validator.FieldLevel) bool {
	password := fl.Field().String()

	if len(password) < 8 {
		return false
	}

	var hasLetter, hasNumber bool
	for _, char := range password {
		switch {
		case unicode.IsLetter(char):
			hasLetter = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}

	return hasLetter && hasNumber
}

func validateSubject(fl validator.FieldLevel) bool {
	return model.IsValidSubject(fl.Field().String())
}

// validateSingleLine rejects values that would break out of a mail header.
func validateSingleLine(fl validator.FieldLevel) bool {
	return !strings.ContainsAny(fl.Field().String(), "\r\n")
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func FormatValidationErrors(err error) []ValidationError {
	var errors []ValidationError

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrors {
			var message string

			switch fieldError.Tag() {
			case "required":
				message = fieldError.Field() + " is required"
			case "email":
				message = "Invalid email format"
			case "min":
				message = fieldError.Field() + " must be at least " + fieldError.Param() + " characters"
			case "max":
				message = fieldError.Field() + " must be at most " + fieldError.Param() + " characters"
			case "strong_password":
				message = "Password must contain at least 8 characters with letters and numbers"
			case "subject":
				message = fieldError.Field() + " is not a known subject"
			case "single_line":
				message = fieldError.Field() + " must not contain line breaks"
			case "oneof":
				message = fieldError.Field() + " must be one of: " + fieldError.Param()
			case "dive":
				message = fieldError.Field() + " contains invalid items"
			default:
				message = fieldError.Field() + " is invalid"
			}

			errors = append(errors, ValidationError{
				Field:   fieldError.Field(),
				Message: message,
			})
		}
	}

	return errors
}

type Validator interface {
	Validate() error
}
