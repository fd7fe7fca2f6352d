package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/poonyc/internal/core/domain"
)

// APIError is the standard error response body.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func newError(c *fiber.Ctx, status int, code, message string) error {
	rid, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: rid,
	})
}

func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "BAD_REQUEST", msg)
}

func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "NOT_FOUND", msg)
}

// errFromDomain maps a service error onto a response using the domain
// sentinels. Anything unclassified is a 500 and its text is not exposed.
func errFromDomain(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return errBadRequest(c, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, domain.ErrPermissionDenied):
		return newError(c, fiber.StatusForbidden, "PERMISSION_DENIED", "location permission was denied")
	case errors.Is(err, domain.ErrSessionClosed):
		return newError(c, fiber.StatusGone, "SESSION_CLOSED", "session is closed")
	case errors.Is(err, domain.ErrTransient), errors.Is(err, domain.ErrSourceFailure):
		LoggerFromCtx(c.UserContext()).Warn("upstream unavailable", "path", c.Path(), "error", err)
		return newError(c, fiber.StatusServiceUnavailable, "UNAVAILABLE", "upstream service unavailable, try again later")
	default:
		LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
		return newError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
