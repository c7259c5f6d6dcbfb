package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	domain "github.com/example/todo-service/domain/todo"
)

// Envelope is the body of every /api response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Error   string `json:"error,omitempty"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Message  string `json:"message"`
	Status   string `json:"status"`
	Database string `json:"database"`
}

// statusFor maps an error kind to its HTTP status.
func statusFor(e *domain.Error) int {
	switch e.Kind {
	case domain.KindUnavailable:
		return fiber.StatusServiceUnavailable
	case domain.KindInvalidInput, domain.KindInvalidIdentifier:
		return fiber.StatusBadRequest
	case domain.KindNotFound:
		return fiber.StatusNotFound
	default:
		if e.Transient {
			return fiber.StatusServiceUnavailable
		}
		return fiber.StatusInternalServerError
	}
}

// sendError writes a failure envelope. Errors that are not *domain.Error
// come from the service transport and are reported as 500 with fallback
// as the message.
func sendError(c *fiber.Ctx, err error, fallback string) error {
	var de *domain.Error
	if !errors.As(err, &de) {
		return c.Status(fiber.StatusInternalServerError).JSON(Envelope{
			Success: false,
			Message: fallback,
			Error:   err.Error(),
		})
	}

	message := de.Message
	if message == "" {
		message = fallback
	}
	detail := de.Detail
	if detail == "" {
		detail = de.Kind.String()
	}
	return c.Status(statusFor(de)).JSON(Envelope{
		Success: false,
		Message: message,
		Error:   detail,
	})
}

func sendSuccess(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}
