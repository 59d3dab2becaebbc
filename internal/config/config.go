// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"CHRONICLE_DB_PATH" envDefault:"./data/chronicle.db"`
	ServerHost string `env:"CHRONICLE_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"CHRONICLE_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"CHRONICLE_ENV" envDefault:"development"`
	LogLevel   string `env:"CHRONICLE_LOG_LEVEL" envDefault:"info"`

	// Cache configuration
	RedisURL     string `env:"CHRONICLE_REDIS_URL"`                         // Optional Redis URL for distributed caching
	CachePrefix  string `env:"CHRONICLE_CACHE_PREFIX" envDefault:"chron:"`  // Redis key prefix
	CacheTTL     int    `env:"CHRONICLE_CACHE_TTL" envDefault:"300"`        // Default cache TTL in seconds
	CacheMaxSize int    `env:"CHRONICLE_CACHE_MAX_SIZE" envDefault:"10000"` // Max memory cache entries

	// Object storage for media uploads (signed PUT URLs)
	S3Bucket        string `env:"CHRONICLE_S3_BUCKET"`
	S3Region        string `env:"CHRONICLE_S3_REGION" envDefault:"us-east-1"`
	S3Endpoint      string `env:"CHRONICLE_S3_ENDPOINT"` // Optional, for MinIO in development
	S3AccessKey     string `env:"CHRONICLE_S3_ACCESS_KEY"`
	S3SecretKey     string `env:"CHRONICLE_S3_SECRET_KEY"`
	S3PublicBaseURL string `env:"CHRONICLE_S3_PUBLIC_BASE_URL"`                 // Base URL for public object access
	UploadURLTTL    int    `env:"CHRONICLE_UPLOAD_URL_TTL_SECONDS" envDefault:"900"` // Signed upload URL lifetime

	// Outbound webhooks
	WebhookURLs   []string `env:"CHRONICLE_WEBHOOK_URLS" envSeparator:","` // Endpoints receiving content events
	WebhookSecret string   `env:"CHRONICLE_WEBHOOK_SECRET"`                // HMAC signing secret

	// Rate limiting
	PublicRateRPS   float64 `env:"CHRONICLE_PUBLIC_RATE_RPS" envDefault:"10"`
	PublicRateBurst int     `env:"CHRONICLE_PUBLIC_RATE_BURST" envDefault:"20"`
	TokenRateRPS    float64 `env:"CHRONICLE_TOKEN_RATE_RPS" envDefault:"25"`
	TokenRateBurst  int     `env:"CHRONICLE_TOKEN_RATE_BURST" envDefault:"50"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// MediaEnabled returns true if object storage is configured for uploads.
func (c Config) MediaEnabled() bool {
	return c.S3Bucket != ""
}

// WebhooksEnabled returns true if any webhook endpoint is configured.
func (c Config) WebhooksEnabled() bool {
	return len(c.WebhookURLs) > 0
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.WebhookURLs) > 0 && cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("CHRONICLE_WEBHOOK_SECRET is required when webhook URLs are configured")
	}

	if cfg.MediaEnabled() && cfg.S3PublicBaseURL == "" {
		return nil, fmt.Errorf("CHRONICLE_S3_PUBLIC_BASE_URL is required when a bucket is configured")
	}

	return cfg, nil
}
