package cats

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Plugin implements apps.AdminPlugin for the cats resource.
type Plugin struct{}

func New() *Plugin {
	return &Plugin{}
}

func (p *Plugin) ID() string { return "cats" }

func (p *Plugin) Models() []interface{} {
	return []interface{}{&Cat{}}
}

func (p *Plugin) RegisterRoutes(router fiber.Router, db *gorm.DB) {
	handler := NewCatHandler(NewCatService(db))

	router.Get("/cats", handler.List)
	router.Post("/cats", handler.Create)
}

func (p *Plugin) RegisterAdminRoutes(router fiber.Router, db *gorm.DB) {
	handler := NewCatHandler(NewCatService(db))

	router.Delete("/cats/:id", handler.Delete)
}
