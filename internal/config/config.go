package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/example/facemock/internal/recognition"
)

// Prefix namespaces every environment variable read by Load.
const Prefix = "FACEMOCK"

// Config holds the process settings. The zero-environment defaults match the
// plain mock: random mode on 0.0.0.0:5001 with no history stores.
type Config struct {
	Addr            string        `envconfig:"ADDR" default:"0.0.0.0:5001"`
	Mode            string        `envconfig:"MODE" default:"random"`
	MaxUploadBytes  int64         `envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"*"`

	RedisAddr   string        `envconfig:"REDIS_ADDR"`
	DatabaseDSN string        `envconfig:"DATABASE_DSN"`
	ResultTTL   time.Duration `envconfig:"RESULT_TTL" default:"10m"`
}

// Load reads an optional .env file and then the FACEMOCK_* environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("config: addr is required")
	}
	if _, err := recognition.ParseMode(c.Mode); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("config: max upload bytes must be positive, got %d", c.MaxUploadBytes)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("config: shutdown timeout must be positive, got %s", c.ShutdownTimeout)
	}
	if c.ResultTTL <= 0 {
		return fmt.Errorf("config: result ttl must be positive, got %s", c.ResultTTL)
	}
	return nil
}

// RecognitionMode returns the validated recognizer mode.
func (c *Config) RecognitionMode() recognition.Mode {
	mode, err := recognition.ParseMode(c.Mode)
	if err != nil {
		return recognition.ModeRandom
	}
	return mode
}

// HistoryEnabled reports whether any result store is configured.
func (c *Config) HistoryEnabled() bool {
	return c.RedisAddr != "" || c.DatabaseDSN != ""
}
