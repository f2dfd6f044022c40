package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port string
	Env  string

	// Store selects the backend: "memory" (default) or "redis".
	Store    string
	RedisURL string

	// RoomTTL is the fixed lifetime of every room.
	RoomTTL time.Duration
	// SweepInterval is how often the expiry sweeper scans for dead rooms.
	SweepInterval time.Duration
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		Store:         getEnv("STORE", "memory"),
		RedisURL:      os.Getenv("REDIS_URL"),
		RoomTTL:       getDuration("ROOM_TTL", 10*time.Minute),
		SweepInterval: getDuration("SWEEP_INTERVAL", time.Second),
	}

	if cfg.Store != "memory" && cfg.Store != "redis" {
		panic("STORE must be \"memory\" or \"redis\"")
	}
	if cfg.Store == "redis" && cfg.RedisURL == "" {
		panic("REDIS_URL is required when STORE=redis")
	}

	// A memory store cannot outlive the process; in production that means a
	// restart silently destroys every room, so require the shared backend.
	if cfg.Env == "production" && cfg.Store != "redis" {
		panic("STORE=redis is required in production")
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		panic(key + " must be a positive duration, e.g. \"10m\"")
	}
	return d
}
