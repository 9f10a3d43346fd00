// Package config loads server configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Stripe   StripeConfig
	CORS     CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"GLASS_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"GLASS_PORT" envDefault:"8080"`
}

// DatabaseConfig holds database connection settings. The sqlite3
// default keeps local development dependency-free; production deploys
// point Driver at postgres.
type DatabaseConfig struct {
	Driver string `env:"GLASS_DB_DRIVER" envDefault:"sqlite3"`
	DSN    string `env:"GLASS_DB_DSN" envDefault:"data/glass.db?_foreign_keys=on"`
}

// AuthConfig holds authentication settings. Issuer and ClientID
// configure ID token verification against the external identity
// provider; AdminEmails is a comma-separated allow-list.
type AuthConfig struct {
	Issuer       string `env:"GLASS_OIDC_ISSUER"`
	ClientID     string `env:"GLASS_OIDC_CLIENT_ID"`
	BootstrapKey string `env:"GLASS_BOOTSTRAP_KEY"`
	AdminEmails  string `env:"GLASS_ADMIN_EMAILS"`
}

// StripeConfig holds Stripe settings. Billing routes answer 503 when
// SecretKey is empty.
type StripeConfig struct {
	SecretKey     string `env:"GLASS_STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"GLASS_STRIPE_WEBHOOK_SECRET"`
}

// CORSConfig holds the comma-separated browser origins allowed to call
// the API.
type CORSConfig struct {
	AllowedOrigins string `env:"GLASS_CORS_ORIGINS" envDefault:"http://localhost:5173"`
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that env tags cannot express.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Database.Driver != "sqlite3" && c.Database.Driver != "postgres" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Auth.Issuer != "" && c.Auth.ClientID == "" {
		return fmt.Errorf("GLASS_OIDC_CLIENT_ID is required when GLASS_OIDC_ISSUER is set")
	}
	if c.Stripe.SecretKey != "" && c.Stripe.WebhookSecret == "" {
		return fmt.Errorf("GLASS_STRIPE_WEBHOOK_SECRET is required when GLASS_STRIPE_SECRET_KEY is set")
	}
	return nil
}

// Addr returns the host:port the server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetAdminEmails returns the parsed admin email list.
func (c *Config) GetAdminEmails() []string {
	return splitList(c.Auth.AdminEmails)
}

// GetAllowedOrigins returns the parsed CORS origin list.
func (c *Config) GetAllowedOrigins() []string {
	return splitList(c.CORS.AllowedOrigins)
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
