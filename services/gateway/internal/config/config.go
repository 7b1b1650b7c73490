// Package config collects the gateway's configuration once at startup.
// Nothing else in the service reads the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenAddr      string
	DatabaseURL     string
	UpstreamBaseURL string
	UpstreamAPIKey  string
	UpstreamSecret  string
	UpstreamTimeout time.Duration
	DefaultCountry  string
	RedisAddr       string
	CatalogCacheTTL time.Duration
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func durenvs(key string, defSec int) time.Duration {
	raw := getenv(key, "")
	if raw == "" {
		return time.Duration(defSec) * time.Second
	}
	sec, err := strconv.Atoi(raw)
	if err != nil || sec <= 0 {
		return time.Duration(defSec) * time.Second
	}
	return time.Duration(sec) * time.Second
}

// Load reads configuration from the environment and applies defaults.
func Load() Config {
	return Config{
		ListenAddr:      getenv("GATEWAY_LISTEN_ADDR", ":8080"),
		DatabaseURL:     getenv("DATABASE_URL", ""),
		UpstreamBaseURL: getenv("UPSTREAM_BASE_URL", "https://api.drgreennft.com/api/v1"),
		UpstreamAPIKey:  getenv("UPSTREAM_API_KEY", ""),
		UpstreamSecret:  getenv("UPSTREAM_SECRET", ""),
		UpstreamTimeout: durenvs("UPSTREAM_TIMEOUT_SECONDS", 30),
		DefaultCountry:  getenv("DEFAULT_COUNTRY", "PRT"),
		RedisAddr:       getenv("REDIS_ADDR", ""),
		CatalogCacheTTL: durenvs("CATALOG_CACHE_TTL_SECONDS", 60),
	}
}

// Validate rejects incomplete configuration before the service starts
// serving. RedisAddr is optional; the catalog cache is skipped without it.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.UpstreamBaseURL == "" {
		return fmt.Errorf("UPSTREAM_BASE_URL is required")
	}
	if c.UpstreamAPIKey == "" {
		return fmt.Errorf("UPSTREAM_API_KEY is required")
	}
	if c.UpstreamSecret == "" {
		return fmt.Errorf("UPSTREAM_SECRET is required")
	}
	if c.DefaultCountry == "" {
		return fmt.Errorf("DEFAULT_COUNTRY is required")
	}
	return nil
}
