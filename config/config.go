// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from file or environment variables.
// It is built once at startup and not modified afterwards.
type Config struct {
	JWTSecret        string        `mapstructure:"JWT_SECRET"`
	Port             string        `mapstructure:"PORT"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	RedisURL         string        `mapstructure:"REDIS_URL"`
	AllowedOrigins   string        `mapstructure:"ALLOWED_ORIGINS"`
	Env              string        `mapstructure:"APP_ENV"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	LogFormat        string        `mapstructure:"LOG_FORMAT"`
	TokenTTL         time.Duration `mapstructure:"TOKEN_TTL"`
	LoginMaxAttempts int           `mapstructure:"LOGIN_MAX_ATTEMPTS"`
	LoginWindow      time.Duration `mapstructure:"LOGIN_WINDOW"`
}

var defaults = map[string]any{
	"JWT_SECRET":         "",
	"PORT":               "8080",
	"DATABASE_URL":       "leave.db",
	"REDIS_URL":          "",
	"ALLOWED_ORIGINS":    "http://localhost:3000,http://localhost:5173",
	"APP_ENV":            "development",
	"LOG_LEVEL":          "info",
	"LOG_FORMAT":         "json",
	"TOKEN_TTL":          "1h",
	"LOGIN_MAX_ATTEMPTS": 5,
	"LOGIN_WINDOW":       "15m",
}

// LoadConfig loads configuration from .env, an optional config.yml and the
// environment, in increasing order of precedence.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.LoginMaxAttempts <= 0 {
		return errors.New("LOGIN_MAX_ATTEMPTS must be positive")
	}
	if c.LoginWindow <= 0 {
		return errors.New("LOGIN_WINDOW must be positive")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}

	if c.IsProduction() && len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters in production")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// Origins splits ALLOWED_ORIGINS on commas.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
