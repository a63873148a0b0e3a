package apps

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Plugin is a self-contained resource mounted next to the account routes.
type Plugin interface {
	// ID returns the unique plugin identifier.
	ID() string

	// Models returns the GORM model pointers to AutoMigrate.
	Models() []interface{}

	// RegisterRoutes mounts the plugin's routes on the /api group.
	RegisterRoutes(router fiber.Router, db *gorm.DB)
}

// AdminPlugin is a Plugin that also serves admin-only routes.
type AdminPlugin interface {
	Plugin

	// RegisterAdminRoutes mounts routes on the /api/admin group, which already
	// has the session and admin middleware applied.
	RegisterAdminRoutes(router fiber.Router, db *gorm.DB)
}
