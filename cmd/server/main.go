package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/apps"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/apps/cats"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/auth"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/mail"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/maintenance"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/store"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout)
	level := logging.ParseLevel(cfg.AppEnv)
	logging.Setup(level)

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}

	// Relational database: system logs, plugins and the gorm user store
	db, err := database.Connect(cfg)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.MigrateShared(db); err != nil {
		slog.Error("shared migration failed", "error", err)
		os.Exit(1)
	}

	// Database log handler (ERROR+ async batch)
	dbLogHandler := logging.NewDBHandler(db, 5*time.Second)
	logging.Setup(level, dbLogHandler)

	// User store
	users, mongoClient, err := openUserStore(cfg, db)
	if err != nil {
		slog.Error("user store init failed", "store", cfg.UserStore, "error", err)
		os.Exit(1)
	}
	slog.Info("user store ready", "store", cfg.UserStore)

	// Rate limit storage (in-process unless Redis is configured)
	var limiterStorage fiber.Storage
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		limiterStorage = middleware.NewRedisStorage(rdb, "ratelimit:")
		slog.Info("rate limit storage", "backend", "redis", "addr", cfg.RedisAddr)
	}

	// Mail
	var sender mail.Sender = mail.NewLogSender(slog.Default())
	if cfg.SMTPHost != "" {
		sender = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	}
	mailer := mail.NewMailer(sender, cfg.AppBaseURL)

	// Services
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiresIn)
	accountService := services.NewAccountService(users, auth.NewBcryptHasher(auth.PasswordCost), issuer, mailer, cfg.PasswordResetTTL)

	// Plugins
	plugins := []apps.Plugin{
		cats.New(),
	}
	for _, p := range plugins {
		if models := p.Models(); len(models) > 0 {
			if err := database.MigrateModels(db, models); err != nil {
				slog.Error("plugin migration failed", "plugin", p.ID(), "error", err)
				os.Exit(1)
			}
			slog.Info("plugin migrated", "plugin", p.ID(), "models", len(models))
		}
	}

	// Maintenance jobs
	scheduler, err := maintenance.NewScheduler(
		maintenance.LogRetentionJob(db, cfg.LogRetention),
		maintenance.ResetTokenJob(users),
	)
	if err != nil {
		slog.Error("scheduler init failed", "error", err)
		os.Exit(1)
	}
	scheduler.Start()

	// Handlers
	checks := map[string]handlers.Checker{
		"users": users.Ping,
		"sqldb": func(ctx context.Context) error { return database.Ping(ctx, db) },
	}
	accountHandler := handlers.NewAccountHandler(accountService)
	adminHandler := handlers.NewAdminHandler(accountService)
	healthHandler := handlers.NewHealthHandler(checks)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestContext())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:requestid}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecurityHeaders())

	// Routes
	routes.Setup(app, cfg, routes.Deps{
		Issuer:         issuer,
		Users:          users,
		DB:             db,
		LimiterStorage: limiterStorage,
		Accounts:       accountHandler,
		Admin:          adminHandler,
		Health:         healthHandler,
		Plugins:        plugins,
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	scheduler.Stop(stopCtx)

	if limiterStorage != nil {
		if err := limiterStorage.Close(); err != nil {
			slog.Error("rate limit storage close error", "error", err)
		}
	}
	if mongoClient != nil {
		if err := mongoClient.Disconnect(stopCtx); err != nil {
			slog.Error("mongodb disconnect error", "error", err)
		}
	}

	dbLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	// Close database connections
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

// openUserStore builds the UserStore selected by USER_STORE. The mongo client
// is returned so it can be disconnected on shutdown.
func openUserStore(cfg *config.Config, db *gorm.DB) (store.UserStore, *mongo.Client, error) {
	switch cfg.UserStore {
	case config.StoreMongo:
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		client, err := database.ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		s := store.NewMongoStore(client.Database(cfg.MongoDatabase).Collection(store.UsersCollection))
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		return s, client, nil
	case config.StoreGorm:
		s := store.NewGormStore(db)
		if err := s.Migrate(); err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case config.StoreMemory:
		return store.NewMemoryStore(), nil, nil
	default:
		return nil, nil, errors.New("unsupported USER_STORE " + cfg.UserStore)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.ErrorContext(c.UserContext(), "unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
		message = "Internal server error"
	}

	return c.Status(code).JSON(dto.NewErrorResponse(code, message, c.Path()))
}
