package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds everything the service reads from the environment.
type Config struct {
	Port     string `envconfig:"PORT" default:"8085"`
	Upstream UpstreamConfig
	Cache    CacheConfig
}

// UpstreamConfig points at the remote price-tracking API.
type UpstreamConfig struct {
	BaseURL        string        `envconfig:"UPSTREAM_BASE_URL" default:"http://127.0.0.1:8000"`
	RequestTimeout time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"10s"`
	RatePerSecond  float64       `envconfig:"UPSTREAM_RATE_PER_SECOND" default:"5"`
	RateBurst      int           `envconfig:"UPSTREAM_RATE_BURST" default:"10"`
}

// CacheConfig controls the redis response cache. An empty URL or an
// unreachable server just disables caching.
type CacheConfig struct {
	RedisURL   string `envconfig:"REDIS_URL" default:"redis://localhost:6379"`
	RedisDB    int    `envconfig:"REDIS_DB" default:"0"`
	TTLSeconds int    `envconfig:"CACHE_TTL" default:"600"`
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}
	return &cfg, nil
}
