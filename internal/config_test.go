package internal

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, name := range []string{
		"CREATOR_CHAT_API_URL", "CREATOR_CHAT_API_TOKEN", "CREATOR_CHAT_STORAGE",
		"CREATOR_CHAT_DB", "CREATOR_CHAT_TIMEOUT", "CREATOR_CHAT_LOG_LEVEL",
	} {
		unsetEnv(t, name)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Storage != StorageSQLite {
		t.Errorf("Storage = %q, want %q", cfg.Storage, StorageSQLite)
	}
	if cfg.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", cfg.Timeout)
	}
	if cfg.ListenAddr != "127.0.0.1:7878" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.DBPath != "" {
		t.Errorf("DBPath = %q, want empty until resolved", cfg.DBPath)
	}

	if err := cfg.ResolveDBPath(); err != nil {
		t.Fatalf("ResolveDBPath() error = %v", err)
	}
	if !strings.HasSuffix(cfg.DBPath, filepath.Join("creator-chat", "chat.db")) {
		t.Errorf("DBPath = %q, want default location", cfg.DBPath)
	}
}

func TestLoadConfigWithoutUserConfigDir(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "plan9" {
		t.Skip("user config dir is not derived from HOME")
	}
	t.Setenv("HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "")
	unsetEnv(t, "CREATOR_CHAT_STORAGE")

	t.Run("explicit db path", func(t *testing.T) {
		t.Setenv("CREATOR_CHAT_DB", "/tmp/creator-chat-test.db")
		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if err := cfg.ResolveDBPath(); err != nil {
			t.Fatalf("ResolveDBPath() error = %v", err)
		}
		if cfg.DBPath != "/tmp/creator-chat-test.db" {
			t.Errorf("DBPath = %q", cfg.DBPath)
		}
	})

	t.Run("memory storage", func(t *testing.T) {
		unsetEnv(t, "CREATOR_CHAT_DB")
		t.Setenv("CREATOR_CHAT_STORAGE", StorageMemory)
		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if err := cfg.ResolveDBPath(); err != nil {
			t.Errorf("ResolveDBPath() error = %v", err)
		}
		if cfg.DBPath != "" {
			t.Errorf("DBPath = %q, want empty", cfg.DBPath)
		}
	})

	t.Run("sqlite without path", func(t *testing.T) {
		unsetEnv(t, "CREATOR_CHAT_DB")
		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if err := cfg.ResolveDBPath(); err == nil {
			t.Error("ResolveDBPath() should fail without a user config dir")
		}
	})
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("CREATOR_CHAT_API_URL", "https://api.example.com/v2")
	t.Setenv("CREATOR_CHAT_STORAGE", "memory")
	t.Setenv("CREATOR_CHAT_DB", "/tmp/custom.db")
	t.Setenv("CREATOR_CHAT_TIMEOUT", "5s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.APIURL != "https://api.example.com/v2" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.Storage != StorageMemory {
		t.Errorf("Storage = %q, want memory", cfg.Storage)
	}
	if cfg.DBPath != "/tmp/custom.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Timeout)
	}
}

func TestLoadConfigInvalidDuration(t *testing.T) {
	t.Setenv("CREATOR_CHAT_TIMEOUT", "soon")

	if _, err := LoadConfig(); err == nil {
		t.Error("LoadConfig() should fail on an invalid duration")
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			APIURL:    "http://localhost:8080/api",
			Storage:   StorageSQLite,
			DBPath:    "/tmp/chat.db",
			RedisURL:  "redis://localhost:6379/0",
			Timeout:   time.Second,
			LogLevel:  "info",
			LogFormat: "console",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "memory needs no path", mutate: func(c *Config) { c.Storage = StorageMemory; c.DBPath = "" }},
		{name: "empty api url", mutate: func(c *Config) { c.APIURL = " " }, wantErr: "CREATOR_CHAT_API_URL"},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: "CREATOR_CHAT_TIMEOUT"},
		{name: "sqlite without path", mutate: func(c *Config) { c.DBPath = "" }, wantErr: "CREATOR_CHAT_DB"},
		{name: "redis without url", mutate: func(c *Config) { c.Storage = StorageRedis; c.RedisURL = "" }, wantErr: "CREATOR_CHAT_REDIS_URL"},
		{name: "unknown backend", mutate: func(c *Config) { c.Storage = "etcd" }, wantErr: "unsupported storage backend"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: "loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Skipf("no user config dir: %v", err)
	}
	if filepath.Base(path) != "chat.db" {
		t.Errorf("DefaultDBPath() = %q, want chat.db file", path)
	}
}

// unsetEnv removes name for the duration of the test
func unsetEnv(t *testing.T, name string) {
	t.Helper()
	old, ok := os.LookupEnv(name)
	os.Unsetenv(name)
	t.Cleanup(func() {
		if ok {
			os.Setenv(name, old)
		}
	})
}
