package middleware

import (
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/logging"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// RequestContext copies the request id set by requestid.New into the user
// context so services can log with it. It must run after requestid.New.
func RequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok && id != "" {
			c.SetUserContext(logging.WithRequestID(c.UserContext(), id))
		}
		return c.Next()
	}
}
