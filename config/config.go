package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - http.go: HTTP server configuration
//   - processing.go: simulated processing configuration
//   - database.go: Postgres history and Redis cache configuration
//   - observability.go: metrics and webhook configuration
type AppConfig struct {
	// IsDev controls development mode behavior (verbose logging, etc.)
	// Set DEV=true for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Simulated processing configuration
	Processing ProcessingConfig

	// Optional persistence configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Processing.Sanitize()
	c.Observability.Sanitize()
	c.detectDevMode()
}

// detectDevMode checks APP_ENV as a fallback for the DEV flag.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		appEnv := strings.ToLower(os.Getenv("APP_ENV"))
		c.IsDev = appEnv == "development" || appEnv == "dev"
	}
}
