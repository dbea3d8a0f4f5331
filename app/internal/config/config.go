package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port string

	Driver    string
	DSN       string
	RedisAddr string
	File      string
	Namespace string

	JWTSecret     string
	JWTExpiration time.Duration

	CORSAllowedOrigins []string

	LogLevel  logrus.Level
	LogFormat string

	OTLPEndpoint string
	ServiceName  string
}

// Load reads an optional .env file from the working directory and then the
// process environment. Variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:         getenv("APP_PORT", "8080"),
		Driver:       getenv("CART_DRIVER", "memory"),
		DSN:          getenv("CART_DSN", ""),
		RedisAddr:    getenv("CART_REDIS_ADDR", ""),
		File:         getenv("CART_FILE", "cart.db"),
		Namespace:    getenv("CART_NAMESPACE", ""),
		JWTSecret:    getenv("JWT_SECRET", ""),
		LogFormat:    strings.ToLower(getenv("LOG_FORMAT", "json")),
		OTLPEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:  getenv("OTEL_SERVICE_NAME", "cartstore"),
	}

	expiration, err := time.ParseDuration(getenv("JWT_EXPIRATION", "24h"))
	if err != nil {
		return nil, fmt.Errorf("JWT_EXPIRATION: %w", err)
	}
	cfg.JWTExpiration = expiration

	level, err := logrus.ParseLevel(getenv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("LOG_FORMAT: unsupported format %q", cfg.LogFormat)
	}

	cfg.CORSAllowedOrigins = splitList(getenv("CORS_ALLOWED_ORIGINS", "*"))

	return cfg, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
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
