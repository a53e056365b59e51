package utils

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/pt-buddy/logger"
)

// FieldError points at one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string       `json:"error"`
	Details []FieldError `json:"details,omitempty"`
}

func ErrorJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(ErrorResponse{Error: msg})
}

// ValidationError answers 400 with field level details.
func ValidationError(c *fiber.Ctx, msg string, details ...FieldError) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: msg, Details: details})
}

// InternalError logs err and answers a generic 500 that hides the cause.
func InternalError(c *fiber.Ctx, msg string, err error) error {
	logger.ErrorContext(c.UserContext(), msg,
		"error", err,
		"method", c.Method(),
		"path", c.Path(),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "operation failed"})
}
