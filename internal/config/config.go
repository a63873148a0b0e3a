package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// User store backends.
const (
	StoreMongo  = "mongo"
	StoreGorm   = "gorm"
	StoreMemory = "memory"
)

// Relational drivers used by gorm.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	// Server
	Port        string
	AppEnv      string
	AppBaseURL  string
	CORSOrigins string

	// JWT
	JWTSecret    string
	JWTExpiresIn time.Duration

	// Account lifecycle
	PasswordResetTTL time.Duration

	// User store
	UserStore     string
	MongoURI      string
	MongoDatabase string

	// Relational database (system logs, cats, gorm user store)
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBPath     string

	// Rate limiting
	APIRateLimit  int
	AuthRateLimit int
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Admin
	AdminEmails  string
	AdminUserIDs string
	AdminToken   string

	// Mail
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// Maintenance
	LogRetention time.Duration

	// Error tracking
	SentryDSN string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present; real env vars win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "3003"),
		AppEnv:      getEnv("APP_ENV", "development"),
		AppBaseURL:  getEnv("APP_BASE_URL", "http://localhost:3003"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),

		JWTSecret:    getEnv("JWT_SECRET", ""),
		JWTExpiresIn: parseDuration(getEnv("JWT_EXPIRES_IN", "10m"), 10*time.Minute),

		PasswordResetTTL: parseDuration(getEnv("PASSWORD_RESET_TTL", "1h"), time.Hour),

		UserStore:     getEnv("USER_STORE", StoreMongo),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "nest-eggs"),

		DBDriver:   getEnv("DB_DRIVER", DriverPostgres),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "account_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		DBPath:     getEnv("DB_PATH", "account.db"),

		APIRateLimit:  parseInt(getEnv("API_RATE_LIMIT", "60"), 60),
		AuthRateLimit: parseInt(getEnv("AUTH_RATE_LIMIT", "10"), 10),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       parseInt(getEnv("REDIS_DB", "0"), 0),

		AdminEmails:  getEnv("ADMIN_EMAILS", ""),
		AdminUserIDs: getEnv("ADMIN_USER_IDS", ""),
		AdminToken:   getEnv("ADMIN_TOKEN", ""),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "no-reply@localhost"),

		LogRetention: parseDuration(getEnv("LOG_RETENTION", "720h"), 30*24*time.Hour),

		SentryDSN: getEnv("SENTRY_DSN", ""),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// NeedsSQL reports whether the relational database must hold user records.
func (c *Config) NeedsSQL() bool {
	return c.UserStore == StoreGorm
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
