package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

// Database drivers.
const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

const envProduction = "production"

// Config holds the application configuration.
type Config struct {
	Env        string
	ServerPort int

	DatabaseDriver string
	MongoURI       string
	MongoDatabase  string
	MongoTLS       bool
	MongoMaxPool   uint64
	MongoMinPool   uint64
	SeedPaths      bool

	SessionSecret string
	SessionTTL    time.Duration
	CookieSecure  bool
	BcryptCost    int

	CORSOrigins []string
	LoginRate   int // attempts per minute per IP

	LogLevel  string
	LogFormat string
	SentryDSN string

	EventRetention     time.Duration
	EventPruneSchedule string
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool {
	return c.Env == envProduction
}

// Load loads configuration from environment variables or sets defaults.
// A .env file in the working directory is read first.
func Load() (*Config, error) {
	var errs []error

	maxPool := getEnvInt("MONGODB_MAX_POOL", 10, &errs)
	minPool := getEnvInt("MONGODB_MIN_POOL", 5, &errs)
	if maxPool < 1 {
		errs = append(errs, fmt.Errorf("MONGODB_MAX_POOL must be at least 1, got %d", maxPool))
		maxPool = 1
	}
	if minPool < 0 {
		errs = append(errs, fmt.Errorf("MONGODB_MIN_POOL cannot be negative, got %d", minPool))
		minPool = 0
	}

	cfg := &Config{
		Env:                strings.ToLower(getEnv("APP_ENV", "development")),
		ServerPort:         getEnvInt("PORT", 8080, &errs),
		DatabaseDriver:     strings.ToLower(getEnv("DATABASE_DRIVER", DriverMongo)),
		MongoURI:           getEnv("MONGODB_URI", ""),
		MongoDatabase:      getEnv("MONGODB_DATABASE", "growthpath"),
		MongoTLS:           getEnvBool("MONGODB_TLS", true, &errs),
		MongoMaxPool:       uint64(maxPool),
		MongoMinPool:       uint64(minPool),
		SeedPaths:          getEnvBool("SEED_PATHS", true, &errs),
		SessionSecret:      getEnv("SESSION_SECRET", ""),
		SessionTTL:         getEnvDuration("SESSION_TTL", 30*24*time.Hour, &errs),
		CookieSecure:       getEnvBool("COOKIE_SECURE", true, &errs),
		BcryptCost:         getEnvInt("BCRYPT_COST", 10, &errs),
		CORSOrigins:        splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		LoginRate:          getEnvInt("LOGIN_RATE", 10, &errs),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "console"),
		SentryDSN:          getEnv("SENTRY_DSN", ""),
		EventRetention:     getEnvDuration("EVENT_RETENTION", 90*24*time.Hour, &errs),
		EventPruneSchedule: getEnv("EVENT_PRUNE_SCHEDULE", "0 3 * * *"),
	}

	if err := cfg.validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	switch c.DatabaseDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required"))
		}
	case DriverMemory:
		if c.IsProduction() {
			errs = append(errs, errors.New("DATABASE_DRIVER=memory is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver))
	}
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is required"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.BcryptCost < 10 || c.BcryptCost > 12 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 10 and 12, got %d", c.BcryptCost))
	}
	if c.MongoMaxPool < 1 {
		errs = append(errs, errors.New("MONGODB_MAX_POOL must be at least 1"))
	}
	if c.MongoMinPool > c.MongoMaxPool {
		errs = append(errs, errors.New("MONGODB_MIN_POOL cannot exceed MONGODB_MAX_POOL"))
	}
	if c.LoginRate <= 0 {
		errs = append(errs, errors.New("LOGIN_RATE must be positive"))
	}
	if c.EventRetention <= 0 {
		errs = append(errs, errors.New("EVENT_RETENTION must be positive"))
	}
	return errors.Join(errs...)
}

// Helper to get an environment variable with a default value. Blank values
// count as unset.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvInt(key string, fallback int, errs *[]error) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		*errs = append(*errs, fmt.Errorf("%s must be a non-negative integer, got %q", key, raw))
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool, errs *[]error) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be a boolean, got %q", key, raw))
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be a duration, got %q", key, raw))
		return fallback
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
