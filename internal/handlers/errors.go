package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/services"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
)

const internalErrorMessage = "Internal server error"

// statusFor maps a service error to an HTTP status and a client-safe message.
func statusFor(err error) (int, string) {
	var accErr *services.AccountError
	if !errors.As(err, &accErr) {
		return fiber.StatusInternalServerError, internalErrorMessage
	}

	switch {
	case errors.Is(accErr.Kind, services.ErrValidation), errors.Is(accErr.Kind, services.ErrBadRequest):
		return fiber.StatusBadRequest, accErr.Msg
	case errors.Is(accErr.Kind, services.ErrUnauthorized):
		return fiber.StatusUnauthorized, accErr.Msg
	case errors.Is(accErr.Kind, services.ErrNotFound):
		return fiber.StatusNotFound, accErr.Msg
	case errors.Is(accErr.Kind, services.ErrConflict):
		return fiber.StatusConflict, accErr.Msg
	default:
		return fiber.StatusInternalServerError, internalErrorMessage
	}
}

// RespondError writes err as an ErrorResponse. Server errors are logged and
// reported to Sentry; their detail never reaches the client.
func RespondError(c *fiber.Ctx, err error) error {
	status, msg := statusFor(err)
	resp := dto.NewErrorResponse(status, msg, c.Path())

	var verr *dto.ValidationError
	if errors.As(err, &verr) {
		resp.Details = verr.Fields
	}

	if status >= fiber.StatusInternalServerError {
		slog.ErrorContext(c.UserContext(), "request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err.Error(),
		)
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
	}
	return c.Status(status).JSON(resp)
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.NewErrorResponse(fiber.StatusBadRequest, "Invalid request body", c.Path()))
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.NewErrorResponse(fiber.StatusUnauthorized, "Unauthorized", c.Path()))
}
