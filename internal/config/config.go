// Package config loads the process configuration from the environment.
//
// Every tunable is an env var parsed into a typed struct via struct tags —
// no flags, no config files. A local ".env" file is loaded first when
// present so development doesn't require exporting a dozen variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full configuration surface of the auth backend.
type Config struct {
	Port   int    `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"data/auth.db"`

	// JWT_SECRET must be a long random string:
	//   JWT_SECRET=$(openssl rand -hex 32)
	JWTSecret string `env:"JWT_SECRET"`
	// Token lifetime in milliseconds. Default: 24h.
	JWTExpirationMS int `env:"JWT_EXPIRATION_MS" envDefault:"86400000"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `env:"GOOGLE_CALLBACK_URL"`

	InstagramClientID     string `env:"INSTAGRAM_CLIENT_ID"`
	InstagramClientSecret string `env:"INSTAGRAM_CLIENT_SECRET"`
	InstagramCallbackURL  string `env:"INSTAGRAM_CALLBACK_URL"`

	// Where the browser lands after an OAuth2 flow:
	// success → {FrontendURL}/auth/callback?token=…
	// failure → {FrontendURL}/login?error=oauth2_failed
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:4200"`
}

// Load reads configuration from a ".env" file (if present) and the process
// environment, and fills in derived defaults.
func Load() (*Config, error) {
	// Missing .env is the normal case in production — ignore the error.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}

	// Callback URLs default to this server's own routes.
	base := fmt.Sprintf("http://localhost:%d", cfg.Port)
	if cfg.GoogleCallbackURL == "" {
		cfg.GoogleCallbackURL = base + "/auth/oauth2/google/callback"
	}
	if cfg.InstagramCallbackURL == "" {
		cfg.InstagramCallbackURL = base + "/auth/oauth2/instagram/callback"
	}

	return &cfg, nil
}

// TokenTTL converts the millisecond setting into a time.Duration.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTExpirationMS) * time.Millisecond
}
