package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	ListenAddr  string `env:"LISTEN_ADDR" envDefault:":8080"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"sqlite://studylog.db"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	CookieHashKey  Key `env:"COOKIE_HASH_KEY,required"`
	CookieBlockKey Key `env:"COOKIE_BLOCK_KEY"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Key is a secret given as base64, or as the path of a file holding base64
// (k8s secret mounts).
type Key []byte

func (k *Key) UnmarshalText(text []byte) error {
	b, err := decodeB64(string(text))
	if err != nil {
		return err
	}
	*k = b
	return nil
}

func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Store is the subset of Config needed by commands that only touch the
// database (migrate, user, record).
type Store struct {
	DatabaseURL string `env:"DATABASE_URL" envDefault:"sqlite://studylog.db"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

func StoreFromEnv() (Store, error) {
	var cfg Store
	if err := env.Parse(&cfg); err != nil {
		return Store{}, fmt.Errorf("config: %w", err)
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return Store{}, fmt.Errorf("DATABASE_URL must not be empty")
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if len(c.CookieHashKey) < 32 {
		return fmt.Errorf("COOKIE_HASH_KEY must decode to at least 32 bytes (got %d)", len(c.CookieHashKey))
	}
	switch len(c.CookieBlockKey) {
	case 0, 16, 24, 32:
	default:
		return fmt.Errorf("COOKIE_BLOCK_KEY must decode to 16, 24 or 32 bytes (got %d)", len(c.CookieBlockKey))
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func decodeB64(s string) ([]byte, error) {
	if b, err := os.ReadFile(s); err == nil {
		s = string(b)
	}
	s = strings.TrimSpace(s)
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
