package utils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AppError is a request failure that maps onto an HTTP status.
type AppError struct {
	Status  int
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

func NewError(status int, message string) *AppError {
	return &AppError{Status: status, Message: message}
}

func Unauthorized(message string) *AppError {
	return NewError(fiber.StatusUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return NewError(fiber.StatusForbidden, message)
}

func NotFound(message string) *AppError {
	return NewError(fiber.StatusNotFound, message)
}

func BadRequest(message string) *AppError {
	return NewError(fiber.StatusBadRequest, message)
}

func Conflict(message string) *AppError {
	return NewError(fiber.StatusConflict, message)
}

// StatusOf returns the HTTP status an error should be reported with.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.StatusNotFound
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler is installed as the fiber app's error handler. Every error a
// handler returns ends up here and is converted to the JSON error envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := StatusOf(err)
	message := err.Error()

	switch {
	case status == fiber.StatusInternalServerError:
		LogError("request_failed", err, map[string]interface{}{
			"method": c.Method(),
			"path":   c.Path(),
		})
		message = "Internal server error"
	case errors.Is(err, gorm.ErrRecordNotFound):
		message = "Resource not found"
	}

	return ErrorResponse(c, status, message, nil)
}
