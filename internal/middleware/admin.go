package middleware

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/store"
	"github.com/gofiber/fiber/v2"
)

// AdminRequired admits a request when any of these holds:
// 1. X-Admin-Token matches ADMIN_TOKEN
// 2. the session email or subject is listed in ADMIN_EMAILS / ADMIN_USER_IDS
// 3. the session subject is an active user with the admin role
//
// Pair it with AdminSession.
func AdminRequired(users store.UserStore, cfg *config.Config) fiber.Handler {
	adminEmails := parseCSV(cfg.AdminEmails)
	adminUserIDs := parseCSV(cfg.AdminUserIDs)

	return func(c *fiber.Ctx) error {
		if hasAdminToken(c, cfg) {
			return c.Next()
		}

		claims, ok := Claims(c)
		if !ok {
			return unauthorized(c, "Unauthorized")
		}

		if contains(adminEmails, claims.Email) || contains(adminUserIDs, claims.Subject) {
			return c.Next()
		}

		user, err := users.FindByID(c.UserContext(), claims.Subject, store.ActiveOnly)
		if err == nil && user.Role == models.RoleAdmin {
			return c.Next()
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			slog.ErrorContext(c.UserContext(), "admin lookup failed", "user_id", claims.Subject, "error", err)
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.NewErrorResponse(fiber.StatusForbidden, "Admin access required", c.Path()))
	}
}

func hasAdminToken(c *fiber.Ctx, cfg *config.Config) bool {
	if cfg.AdminToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Get("X-Admin-Token")), []byte(cfg.AdminToken)) == 1
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
