package shared

import (
	"errors"
	"net/http"
)

// AppError carries an HTTP status alongside the underlying cause so that
// services can decide the response code while handlers just return errors.
type AppError struct {
	StatusCode int
	Message    string
	Data       interface{}
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func newAppError(status int, err error, message string) *AppError {
	return &AppError{StatusCode: status, Message: message, Err: err}
}

func NewBadRequestError(err error, message string) *AppError {
	return newAppError(http.StatusBadRequest, err, message)
}

func NewValidationError(err error, details interface{}) *AppError {
	appErr := newAppError(http.StatusBadRequest, err, "Validation failed")
	appErr.Data = details
	return appErr
}

func NewUnauthorizedError(err error, message string) *AppError {
	return newAppError(http.StatusUnauthorized, err, message)
}

func NewForbiddenError(err error, message string) *AppError {
	return newAppError(http.StatusForbidden, err, message)
}

func NewNotFoundError(err error, message string) *AppError {
	return newAppError(http.StatusNotFound, err, message)
}

func NewConflictError(err error, message string, data interface{}) *AppError {
	appErr := newAppError(http.StatusConflict, err, message)
	appErr.Data = data
	return appErr
}

func NewTooManyRequestsError(err error, message string) *AppError {
	return newAppError(http.StatusTooManyRequests, err, message)
}

// NewUpstreamError marks failures of the oracle or the email provider.
func NewUpstreamError(err error, message string) *AppError {
	return newAppError(http.StatusInternalServerError, err, message)
}

func NewServerConfigError(err error, message string) *AppError {
	return newAppError(http.StatusInternalServerError, err, message)
}

func NewInternalError(err error) *AppError {
	return newAppError(http.StatusInternalServerError, err, "Internal Server Error")
}
