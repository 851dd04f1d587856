package presenter

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

type ErrorResponse struct {
	Message string `json:"message"`
}

// ValidationErrorResponse additionally enumerates per-field messages.
type ValidationErrorResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

func JSON(c *fiber.Ctx, status int, v any) error {
	return c.Status(status).JSON(v)
}

func Error(c *fiber.Ctx, status int, message string) error {
	return JSON(c, status, ErrorResponse{Message: message})
}

func ValidationError(c *fiber.Ctx, fields map[string][]string) error {
	return JSON(c, http.StatusBadRequest, ValidationErrorResponse{
		Message: "Validation error",
		Errors:  fields,
	})
}
