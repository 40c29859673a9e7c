package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Pipeline.RecallLimit != 10 {
		t.Errorf("expected recall limit 10, got %d", cfg.Pipeline.RecallLimit)
	}
	if cfg.Pipeline.RecallTimeout != 150*time.Millisecond {
		t.Errorf("expected recall timeout 150ms, got %v", cfg.Pipeline.RecallTimeout)
	}
	if cfg.Memory.WriteTimeout != 250*time.Millisecond {
		t.Errorf("expected write timeout 250ms, got %v", cfg.Memory.WriteTimeout)
	}
	if cfg.Memory.Backend != "sqlite" || cfg.Memory.Driver != "sqlite" {
		t.Errorf("expected sqlite backend with pure Go driver, got %s/%s", cfg.Memory.Backend, cfg.Memory.Driver)
	}
	if cfg.Sessions.HistorySize != 10 {
		t.Errorf("expected history size 10, got %d", cfg.Sessions.HistorySize)
	}
	if cfg.Sessions.ReapSchedule != "@every 5m" {
		t.Errorf("expected reap schedule '@every 5m', got '%s'", cfg.Sessions.ReapSchedule)
	}
	if cfg.Pipeline.RandomizeSuggestions {
		t.Error("expected suggestions to be deterministic by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got '%s'", cfg.Logging.Level)
	}
	if cfg.Personas.Default != "companion" {
		t.Errorf("expected default persona 'companion', got '%s'", cfg.Personas.Default)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoadFromPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, ".empath", "config.yaml")

	// Load config (should create default)
	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	if cfg.Memory.Backend != "sqlite" {
		t.Errorf("expected sqlite backend, got '%s'", cfg.Memory.Backend)
	}
	if cfg.Pipeline.RecallTimeout != 150*time.Millisecond {
		t.Errorf("expected recall timeout to round-trip, got %v", cfg.Pipeline.RecallTimeout)
	}

	homeDir, _ := os.UserHomeDir()
	if !strings.HasPrefix(cfg.Memory.Path, homeDir) {
		t.Errorf("expected memory path to be expanded, got '%s'", cfg.Memory.Path)
	}
}

func TestSaveToPath(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.Memory.Backend = "redis"
	cfg.Memory.Redis.Addr = "redis.internal:6380"
	cfg.Pipeline.RandomizeSuggestions = true
	cfg.Pipeline.SuggestionSeed = 42
	cfg.Server.AllowedOrigins = []string{"https://app.example.com"}

	if err := cfg.SaveToPath(configPath); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}

	if loaded.Memory.Backend != "redis" {
		t.Errorf("expected backend 'redis', got '%s'", loaded.Memory.Backend)
	}
	if loaded.Memory.Redis.Addr != "redis.internal:6380" {
		t.Errorf("expected redis addr to persist, got '%s'", loaded.Memory.Redis.Addr)
	}
	if !loaded.Pipeline.RandomizeSuggestions || loaded.Pipeline.SuggestionSeed != 42 {
		t.Error("expected suggestion settings to persist")
	}
	if len(loaded.Server.AllowedOrigins) != 1 {
		t.Errorf("expected 1 allowed origin, got %d", len(loaded.Server.AllowedOrigins))
	}
}

func TestEnvironmentOverride(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	t.Setenv("EMPATH_LOGGING_LEVEL", "debug")
	t.Setenv("EMPATH_MEMORY_BACKEND", "memory")
	t.Setenv("EMPATH_PIPELINE_RECALL_LIMIT", "25")

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug' from env, got '%s'", cfg.Logging.Level)
	}
	if cfg.Memory.Backend != "memory" {
		t.Errorf("expected backend 'memory' from env, got '%s'", cfg.Memory.Backend)
	}
	if cfg.Pipeline.RecallLimit != 25 {
		t.Errorf("expected recall limit 25 from env, got %d", cfg.Pipeline.RecallLimit)
	}
}

func TestDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	envFile := "EMPATH_SERVER_ADDR=0.0.0.0:9999\nEMPATH_LOGGING_FORMAT=json\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(envFile), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("EMPATH_LOGGING_FORMAT", "console")
	// registered so t cleans it up after godotenv sets it
	t.Setenv("EMPATH_SERVER_ADDR", "")
	os.Unsetenv("EMPATH_SERVER_ADDR")

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Addr != "0.0.0.0:9999" {
		t.Errorf("expected server addr from .env, got '%s'", cfg.Server.Addr)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("expected existing env to win over .env, got '%s'", cfg.Logging.Format)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid default", func(c *Config) {}, ""},
		{"recall limit zero", func(c *Config) { c.Pipeline.RecallLimit = 0 }, "recall_limit"},
		{"recall timeout zero", func(c *Config) { c.Pipeline.RecallTimeout = 0 }, "recall_timeout"},
		{"unknown backend", func(c *Config) { c.Memory.Backend = "mongo" }, "memory.backend"},
		{"bad driver", func(c *Config) { c.Memory.Driver = "pgx" }, "memory.driver"},
		{"sqlite without path", func(c *Config) { c.Memory.Path = "" }, "memory.path"},
		{"redis without addr", func(c *Config) {
			c.Memory.Backend = "redis"
			c.Memory.Redis.Addr = ""
		}, "redis.addr"},
		{"memory backend ignores driver", func(c *Config) {
			c.Memory.Backend = "memory"
			c.Memory.Driver = ""
		}, ""},
		{"workers out of range", func(c *Config) { c.Memory.Workers = 0 }, "memory.workers"},
		{"bad schedule", func(c *Config) { c.Sessions.ReapSchedule = "every now and then" }, "reap_schedule"},
		{"cron schedule", func(c *Config) { c.Sessions.ReapSchedule = "*/10 * * * *" }, ""},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "log level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "log format"},
		{"no default persona", func(c *Config) { c.Personas.Default = "" }, "personas.default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing '%s', got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing '%s', got '%v'", tt.wantErr, err)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	if got := expandPath("~/.empath/memory.db"); got != filepath.Join(homeDir, ".empath", "memory.db") {
		t.Errorf("unexpected expansion: %s", got)
	}
	if got := expandPath("/var/lib/empath.db"); got != "/var/lib/empath.db" {
		t.Errorf("absolute path should be unchanged, got %s", got)
	}
}

func TestEnsureDirectories(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()

	cfg := Default()
	cfg.Memory.Path = filepath.Join(dir, "data", "memory.db")
	cfg.Logging.File = filepath.Join(dir, "logs", "empath.log")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("failed to ensure directories: %v", err)
	}
	for _, d := range []string{filepath.Join(dir, "data"), filepath.Join(dir, "logs")} {
		if _, err := os.Stat(d); err != nil {
			t.Errorf("expected %s to exist: %v", d, err)
		}
	}
}
