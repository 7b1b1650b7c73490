// Package config collects the relay's configuration once at startup.
package config

import (
	"fmt"
	"os"
	"strings"
)

type Config struct {
	ListenAddr  string
	DatabaseURL string

	// WebhookSecret signs inbound deliveries. RequireSignature defaults to
	// true: without it a misconfigured deployment would silently accept
	// unsigned events. The dev opt-out must be explicit.
	WebhookSecret    string
	RequireSignature bool

	EmailAPIKey  string
	EmailBaseURL string
	EmailFrom    string
	OrdersURL    string
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func Load() Config {
	return Config{
		ListenAddr:       getenv("RELAY_LISTEN_ADDR", ":8081"),
		DatabaseURL:      getenv("DATABASE_URL", ""),
		WebhookSecret:    getenv("WEBHOOK_SECRET", ""),
		RequireSignature: !strings.EqualFold(getenv("WEBHOOK_ALLOW_UNSIGNED", "false"), "true"),
		EmailAPIKey:      getenv("EMAIL_API_KEY", ""),
		EmailBaseURL:     getenv("EMAIL_BASE_URL", "https://api.resend.com"),
		EmailFrom:        getenv("EMAIL_FROM", "Healing Buds <orders@healingbuds.co.uk>"),
		OrdersURL:        getenv("ORDERS_URL", "https://healingbuds.co.uk/orders"),
	}
}

func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.RequireSignature && c.WebhookSecret == "" {
		return fmt.Errorf("WEBHOOK_SECRET is required unless WEBHOOK_ALLOW_UNSIGNED=true")
	}
	return nil
}
