package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MigrationsPath string

	// Hosted Postgres convenience:
	// - DATABASE_URL: runtime connection (often PgBouncer/pooler)
	// - DIRECT_URL: direct connection for migrations
	DatabaseURL string
	DirectURL   string

	DB DBConfig

	// StoreDriver is "postgres" or "memory". Memory is for local runs and demos only.
	StoreDriver string

	JWT JWTConfig

	// RedisURL enables the cross-instance hall lock. Empty means in-process locking.
	RedisURL string

	AMQP AMQPConfig

	LockTimeout       time.Duration
	ContentionRetries int

	// HorizonDays is how far ahead a reservation date may lie.
	HorizonDays int
	Location    *time.Location

	LogLevel string

	AllowedOrigins []string
}

type DBConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	MaxConns int32
}

// URL renders the discrete DB_* settings as a postgres:// connection string.
func (c DBConfig) URL() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {sslmode}}.Encode(),
	}
	return u.String()
}

type JWTConfig struct {
	Secret   string
	Audience string
}

type AMQPConfig struct {
	URL      string
	Exchange string
}

func (c Config) IsDev() bool { return c.AppEnv == "dev" }

func Load() Config {
	// Convenience for local dev: load variables from .env if present.
	// In production, rely on real environment variables.
	_ = godotenv.Load()

	// Cloud Run sets PORT. Prefer it when HTTP_ADDR isn't explicitly set.
	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			httpAddr = ":" + port
		} else {
			httpAddr = ":8080"
		}
	}

	return Config{
		AppEnv:         env("APP_ENV", "dev"),
		HTTPAddr:       httpAddr,
		MigrationsPath: env("MIGRATIONS_PATH", "file://migrations"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DirectURL:      os.Getenv("DIRECT_URL"),
		DB: DBConfig{
			Host:     env("DB_HOST", "localhost"),
			Port:     env("DB_PORT", "5432"),
			Name:     env("DB_NAME", "hallbooking"),
			User:     env("DB_USER", "hallbooking"),
			Password: env("DB_PASSWORD", "hallbooking"),
			SSLMode:  env("DB_SSLMODE", "disable"),
			MaxConns: int32(envInt("DB_MAX_CONNS", 0)),
		},
		StoreDriver: strings.ToLower(env("STORE_DRIVER", "postgres")),
		JWT: JWTConfig{
			Secret:   os.Getenv("JWT_SECRET"),
			Audience: env("JWT_AUDIENCE", "hallbooking"),
		},
		RedisURL: os.Getenv("REDIS_URL"),
		AMQP: AMQPConfig{
			URL:      os.Getenv("AMQP_URL"),
			Exchange: env("AMQP_EXCHANGE", "hallbooking.events"),
		},
		LockTimeout:       envDuration("LOCK_TIMEOUT", 2*time.Second),
		ContentionRetries: envInt("CONTENTION_RETRIES", 3),
		HorizonDays:       envInt("BOOKING_HORIZON_DAYS", 30),
		Location:          envLocation("TIMEZONE", time.UTC),
		LogLevel:          env("LOG_LEVEL", "info"),
		AllowedOrigins:    envList("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:4173"),
	}
}

func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func envLocation(key string, fallback *time.Location) *time.Location {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	loc, err := time.LoadLocation(v)
	if err != nil {
		return fallback
	}
	return loc
}

func envList(key, fallbackCSV string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = fallbackCSV
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
