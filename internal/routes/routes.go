package routes

import (
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/apps"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/auth"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/store"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Deps is everything the routing table needs.
type Deps struct {
	Issuer *auth.TokenIssuer
	Users  store.UserStore
	DB     *gorm.DB

	// LimiterStorage backs the rate limiters. Nil keeps counters in memory.
	LimiterStorage fiber.Storage

	Accounts *handlers.AccountHandler
	Admin    *handlers.AdminHandler
	Health   *handlers.HealthHandler

	Plugins []apps.Plugin
}

func Setup(app *fiber.App, cfg *config.Config, d Deps) {
	api := app.Group("/api")
	api.Use(middleware.RateLimit("api", cfg.APIRateLimit, d.LimiterStorage))

	api.Get("/health", d.Health.Check)

	// Auth: stricter per-IP limit on top of the API one
	authGroup := api.Group("/auth", middleware.RateLimit("auth", cfg.AuthRateLimit, d.LimiterStorage))
	authGroup.Post("/signup", d.Accounts.SignUp)
	authGroup.Post("/login", d.Accounts.Login)
	authGroup.Post("/forgot-password", d.Accounts.ForgotPassword)
	authGroup.Post("/reset-password", d.Accounts.ResetPassword)
	authGroup.Get("/verify-email/:token", d.Accounts.VerifyEmail)

	// Session required. Attached per route so public routes stay untouched.
	session := middleware.Session(d.Issuer)
	authGroup.Get("/profile", session, d.Accounts.GetProfile)
	authGroup.Put("/profile", session, d.Accounts.UpdateProfile)
	authGroup.Put("/change-password", session, d.Accounts.ChangePassword)
	authGroup.Put("/change-email", session, d.Accounts.ChangeEmail)
	authGroup.Put("/deactivate", session, d.Accounts.Deactivate)
	authGroup.Put("/reactivate", session, d.Accounts.Reactivate)
	authGroup.Delete("/account", session, d.Accounts.DeleteAccount)
	authGroup.Post("/resend-verification", session, d.Accounts.ResendVerification)

	admin := api.Group("/admin",
		middleware.AdminSession(d.Issuer, cfg),
		middleware.AdminRequired(d.Users, cfg),
	)
	admin.Get("/users", d.Admin.ListUsers)
	admin.Get("/users/:id", d.Admin.GetUser)

	for _, p := range d.Plugins {
		p.RegisterRoutes(api, d.DB)
		if ap, ok := p.(apps.AdminPlugin); ok {
			ap.RegisterAdminRoutes(admin, d.DB)
		}
	}
}
