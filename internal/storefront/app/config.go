package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIURL            string        // Required: base URL of the storefront API
	StoreDriver       string        // Token store driver (memory, file, sqlite, redis) (default: file)
	StoreDir          string        // Directory for the file driver (default: ./.storefront)
	DatabaseFile      string        // SQLite database file for the sqlite driver (default: ./storefront.db)
	RedisAddr         string        // Redis address for the redis driver (default: localhost:6379)
	RedisPassword     string        // Optional
	MasterKeyPath     string        // Key sealing the file store (default: <StoreDir>/master.key)
	OAuthCallbackPath string        // Route owning the OAuth hand-off (default: /oauth-callback)
	InitialPath       string        // Route the session is bootstrapped for (default: /)
	APIRateLimit      float64       // Outbound calls per second, 0 disables (default: 0)
	APITimeout        time.Duration // Per-call timeout (default: 10s)
	MetricsAddr       string        // Optional: serve /metrics, /livez, /readyz and /session on this address
	KeepaliveInterval time.Duration // How often token expiry is checked, 0 disables (default: 1m)
	RefreshWindow     time.Duration // Refresh when the token expires within this (default: 5m)
	Env               string        // Environment (dev, staging, prod) (default: dev)
	LogLevel          string        // Log level (debug, info, warn, error) (default: info)
	LogFormat         string        // Log format (json, text) (default: json)

	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)

	// LogOutput defaults to stdout. Not read from the environment.
	LogOutput io.Writer
}

// LoadConfig reads the configuration from the environment, after loading a
// .env file from the working directory if one exists.
func LoadConfig() Config {
	// Missing .env is normal; the environment alone is enough
	_ = godotenv.Load()

	storeDir := getEnvOrDefault("STORE_DIR", ".storefront")

	return Config{
		APIURL:              os.Getenv("STOREFRONT_API_URL"),
		StoreDriver:         getEnvOrDefault("STORE_DRIVER", "file"),
		StoreDir:            storeDir,
		DatabaseFile:        getEnvOrDefault("STORE_DATABASE_FILE", "storefront.db"),
		RedisAddr:           getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		MasterKeyPath:       getEnvOrDefault("STORE_MASTER_KEY_PATH", filepath.Join(storeDir, "master.key")),
		OAuthCallbackPath:   getEnvOrDefault("OAUTH_CALLBACK_PATH", "/oauth-callback"),
		InitialPath:         getEnvOrDefault("INITIAL_PATH", "/"),
		APIRateLimit:        getEnvFloatOrDefault("API_RATE_LIMIT", 0),
		APITimeout:          getEnvDurationOrDefault("API_TIMEOUT", 10*time.Second),
		MetricsAddr:         os.Getenv("METRICS_ADDR"),
		KeepaliveInterval:   getEnvDurationOrDefault("KEEPALIVE_INTERVAL", time.Minute),
		RefreshWindow:       getEnvDurationOrDefault("REFRESH_WINDOW", 5*time.Minute),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

// Validate reports configuration that cannot work.
func (c Config) Validate() error {
	var errs []error

	if c.APIURL == "" {
		errs = append(errs, errors.New("STOREFRONT_API_URL is required"))
	}

	switch c.StoreDriver {
	case "memory", "sqlite", "redis":
	case "file":
		if c.StoreDir == "" {
			errs = append(errs, errors.New("STORE_DIR is required for the file driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	if c.APIRateLimit < 0 {
		errs = append(errs, errors.New("API_RATE_LIMIT must not be negative"))
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
