package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "dev-secret"

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	HTTP     HTTPConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values. An empty DSN selects the in-memory stores.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables the stats cache.
type RedisConfig struct {
	Addr             string
	Password         string
	DB               int
	StatsCacheTTLSec int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret       string
	TokenTTLMinutes int
	BcryptCost      int
}

// HTTPConfig holds transport level settings.
type HTTPConfig struct {
	CORSAllowOrigins string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "support-desk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:             os.Getenv("REDIS_ADDR"),
			Password:         os.Getenv("REDIS_PASSWORD"),
			DB:               redisDB,
			StatsCacheTTLSec: getEnvAsInt("STATS_CACHE_TTL_SECONDS", 60),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:       os.Getenv("AUTH_JWT_SECRET"),
			TokenTTLMinutes: getEnvAsInt("AUTH_TOKEN_TTL_MINUTES", 0),
			BcryptCost:      getEnvAsInt("AUTH_BCRYPT_COST", 10),
		},
		HTTP: HTTPConfig{
			CORSAllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
		},
	}

	if cfg.Auth.JWTSecret == "" {
		if !cfg.App.IsDevelopment() {
			return nil, errors.New("AUTH_JWT_SECRET is required outside development")
		}
		cfg.Auth.JWTSecret = defaultJWTSecret
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// IsDevelopment reports whether the service runs in the development environment.
func (a AppConfig) IsDevelopment() bool {
	return strings.EqualFold(a.Env, "development")
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// StatsCacheTTL returns how long cached stats stay valid.
func (r RedisConfig) StatsCacheTTL() time.Duration {
	if r.StatsCacheTTLSec <= 0 {
		return 0
	}
	return time.Duration(r.StatsCacheTTLSec) * time.Second
}

// TokenTTL returns the identity token lifetime; zero means tokens carry no expiry.
func (a AuthConfig) TokenTTL() time.Duration {
	if a.TokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(a.TokenTTLMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
