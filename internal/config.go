package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Storage backends for persisted conversations
const (
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// Config holds the environment driven configuration of the chat client
type Config struct {
	APIURL      string        `env:"CREATOR_CHAT_API_URL" envDefault:"http://localhost:8080/api"`
	APIToken    string        `env:"CREATOR_CHAT_API_TOKEN"`
	Storage     string        `env:"CREATOR_CHAT_STORAGE" envDefault:"sqlite"`
	DBPath      string        `env:"CREATOR_CHAT_DB"`
	RedisURL    string        `env:"CREATOR_CHAT_REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RedisPrefix string        `env:"CREATOR_CHAT_REDIS_PREFIX" envDefault:"creator-chat:"`
	Timeout     time.Duration `env:"CREATOR_CHAT_TIMEOUT" envDefault:"60s"`
	LogLevel    string        `env:"CREATOR_CHAT_LOG_LEVEL" envDefault:"warn"`
	LogFormat   string        `env:"CREATOR_CHAT_LOG_FORMAT" envDefault:"console"`
	ListenAddr  string        `env:"CREATOR_CHAT_LISTEN_ADDR" envDefault:"127.0.0.1:7878"`
}

// LoadConfig reads a .env file from the working directory when present, then
// parses the environment. Real environment variables win over .env entries.
// DBPath stays empty unless set; see ResolveDBPath.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		LogWarn("Failed to load .env file: %v", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	return cfg, nil
}

// ResolveDBPath fills DBPath with the per-user default when sqlite storage is
// selected and no path was given. Call it after flag overrides are applied.
func (c *Config) ResolveDBPath() error {
	if c.Storage != StorageSQLite || c.DBPath != "" {
		return nil
	}
	path, err := DefaultDBPath()
	if err != nil {
		return err
	}
	c.DBPath = path
	return nil
}

// Validate checks the settings needed by the selected backend
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return fmt.Errorf("CREATOR_CHAT_API_URL must not be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("CREATOR_CHAT_TIMEOUT must be positive, got %s", c.Timeout)
	}
	switch c.Storage {
	case StorageSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("CREATOR_CHAT_DB is required for sqlite storage")
		}
	case StorageRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("CREATOR_CHAT_REDIS_URL is required for redis storage")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unsupported storage backend %q (use sqlite, redis or memory)", c.Storage)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// DefaultDBPath returns the per-user database location,
// <UserConfigDir>/creator-chat/chat.db
func DefaultDBPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, "creator-chat", "chat.db"), nil
}
