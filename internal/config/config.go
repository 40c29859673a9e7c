package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. EMPATH_MEMORY_BACKEND.
const EnvPrefix = "EMPATH"

// Config holds all application configuration for empath.
// It is loaded from ~/.empath/config.yaml and can be overridden by environment variables.
type Config struct {
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Memory   MemoryConfig   `mapstructure:"memory" yaml:"memory"`
	Sessions SessionsConfig `mapstructure:"sessions" yaml:"sessions"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Personas PersonasConfig `mapstructure:"personas" yaml:"personas"`
}

// PipelineConfig tunes per-turn processing.
type PipelineConfig struct {
	// RecallLimit is how many memory records the context loader recalls
	RecallLimit int `mapstructure:"recall_limit" yaml:"recall_limit"`
	// RecallTimeout bounds the recall call
	RecallTimeout time.Duration `mapstructure:"recall_timeout" yaml:"recall_timeout"`
	// RandomizeSuggestions shuffles suggestion candidates within each tier
	RandomizeSuggestions bool `mapstructure:"randomize_suggestions" yaml:"randomize_suggestions"`
	// SuggestionSeed seeds the shuffle; 0 seeds from the clock
	SuggestionSeed int64 `mapstructure:"suggestion_seed" yaml:"suggestion_seed"`
}

// MemoryConfig selects and tunes the memory store.
type MemoryConfig struct {
	// Backend is "memory", "sqlite" or "redis"
	Backend string `mapstructure:"backend" yaml:"backend"`
	// Driver is the sqlite driver: "sqlite" (pure Go) or "sqlite3" (cgo)
	Driver string `mapstructure:"driver" yaml:"driver"`
	// Path is the sqlite database file
	Path string `mapstructure:"path" yaml:"path"`
	// MaxPerOwner caps stored records per owner (memory and redis backends)
	MaxPerOwner int `mapstructure:"max_per_owner" yaml:"max_per_owner"`
	// WriteTimeout bounds each store call made by the writer
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	// Workers is the number of writer goroutines
	Workers int `mapstructure:"workers" yaml:"workers"`
	// QueueSize is the writer queue capacity; submissions beyond it are dropped
	QueueSize int         `mapstructure:"queue_size" yaml:"queue_size"`
	Redis     RedisConfig `mapstructure:"redis" yaml:"redis"`
}

// RedisConfig holds the Redis connection for the redis backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
}

// SessionsConfig controls mood history and the idle-session janitor.
type SessionsConfig struct {
	// HistorySize is the mood history capacity per session
	HistorySize int `mapstructure:"history_size" yaml:"history_size"`
	// IdleTimeout is how long a session may go without a turn before it is reaped
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	// ReapSchedule is a cron spec or descriptor such as "@every 5m"
	ReapSchedule string `mapstructure:"reap_schedule" yaml:"reap_schedule"`
}

// ServerConfig configures the HTTP and websocket server.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	// AllowedOrigins for websocket upgrades; empty allows same-origin only
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	// MaxInputBytes rejects turn requests with longer text
	MaxInputBytes int `mapstructure:"max_input_bytes" yaml:"max_input_bytes"`
}

// LoggingConfig contains configuration for application logging.
type LoggingConfig struct {
	// Level is the log level ("debug", "info", "warn", "error")
	Level string `mapstructure:"level" yaml:"level"`
	// File is the path to the log file; empty logs to stderr only
	File string `mapstructure:"file" yaml:"file"`
	// Format is "console" or "json" for stderr output
	Format string `mapstructure:"format" yaml:"format"`
}

// PersonasConfig selects the default persona and extra persona files.
type PersonasConfig struct {
	Default string `mapstructure:"default" yaml:"default"`
	// Dir holds *.yaml persona definitions that add to or replace the built-ins
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			RecallLimit:   10,
			RecallTimeout: 150 * time.Millisecond,
		},
		Memory: MemoryConfig{
			Backend:      "sqlite",
			Driver:       "sqlite",
			Path:         "~/.empath/memory.db",
			MaxPerOwner:  500,
			WriteTimeout: 250 * time.Millisecond,
			Workers:      2,
			QueueSize:    256,
			Redis: RedisConfig{
				Addr:   "127.0.0.1:6379",
				Prefix: "empath:memory:",
			},
		},
		Sessions: SessionsConfig{
			HistorySize:  10,
			IdleTimeout:  30 * time.Minute,
			ReapSchedule: "@every 5m",
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8470",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			MaxInputBytes:   8192,
		},
		Logging: LoggingConfig{
			Level:  "info",
			File:   "",
			Format: "console",
		},
		Personas: PersonasConfig{
			Default: "companion",
			Dir:     "~/.empath/personas",
		},
	}
}

// Load reads configuration from ~/.empath/config.yaml.
func Load() (*Config, error) {
	return LoadFromPath(DefaultPath())
}

// DefaultPath returns the path of the user config file.
func DefaultPath() string {
	return filepath.Join(DataDir(), "config.yaml")
}

// DataDir returns the empath data directory (~/.empath).
func DataDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".empath")
}

// LoadFromPath reads configuration from a specific file path and merges with
// environment variables. If the file doesn't exist, it creates one with default values.
// A .env file in the working directory or next to the config file is loaded first
// without overriding variables already set.
func LoadFromPath(path string) (*Config, error) {
	path = expandPath(path)

	loadDotEnv(".env", filepath.Join(filepath.Dir(path), ".env"))

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeConfigFile(path, Default()); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Example: EMPATH_MEMORY_REDIS_ADDR
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Memory.Path = expandPath(cfg.Memory.Path)
	cfg.Logging.File = expandPath(cfg.Logging.File)
	cfg.Personas.Dir = expandPath(cfg.Personas.Dir)

	return &cfg, nil
}

// setDefaults registers every key so env overrides apply even when the file
// omits a section.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("pipeline.recall_limit", d.Pipeline.RecallLimit)
	v.SetDefault("pipeline.recall_timeout", d.Pipeline.RecallTimeout)
	v.SetDefault("pipeline.randomize_suggestions", d.Pipeline.RandomizeSuggestions)
	v.SetDefault("pipeline.suggestion_seed", d.Pipeline.SuggestionSeed)

	v.SetDefault("memory.backend", d.Memory.Backend)
	v.SetDefault("memory.driver", d.Memory.Driver)
	v.SetDefault("memory.path", d.Memory.Path)
	v.SetDefault("memory.max_per_owner", d.Memory.MaxPerOwner)
	v.SetDefault("memory.write_timeout", d.Memory.WriteTimeout)
	v.SetDefault("memory.workers", d.Memory.Workers)
	v.SetDefault("memory.queue_size", d.Memory.QueueSize)
	v.SetDefault("memory.redis.addr", d.Memory.Redis.Addr)
	v.SetDefault("memory.redis.password", d.Memory.Redis.Password)
	v.SetDefault("memory.redis.db", d.Memory.Redis.DB)
	v.SetDefault("memory.redis.prefix", d.Memory.Redis.Prefix)

	v.SetDefault("sessions.history_size", d.Sessions.HistorySize)
	v.SetDefault("sessions.idle_timeout", d.Sessions.IdleTimeout)
	v.SetDefault("sessions.reap_schedule", d.Sessions.ReapSchedule)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("server.max_input_bytes", d.Server.MaxInputBytes)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("personas.default", d.Personas.Default)
	v.SetDefault("personas.dir", d.Personas.Dir)
}

// loadDotEnv loads the first readable files; godotenv.Load does not
// overwrite variables that are already set.
func loadDotEnv(files ...string) {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		_ = godotenv.Load(f)
	}
}

// Save writes the current configuration to the default config file location.
func (c *Config) Save() error {
	return c.SaveToPath(DefaultPath())
}

// SaveToPath writes the current configuration to a specific file path.
func (c *Config) SaveToPath(path string) error {
	path = expandPath(path)

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return writeConfigFile(path, c)
}

// EnsureDirectories creates the directories the configured paths live in.
func (c *Config) EnsureDirectories() error {
	dirs := []string{DataDir()}
	if c.Memory.Backend == "sqlite" && c.Memory.Path != "" {
		dirs = append(dirs, filepath.Dir(c.Memory.Path))
	}
	if c.Logging.File != "" {
		dirs = append(dirs, filepath.Dir(c.Logging.File))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Validate checks the configuration for common errors and inconsistencies.
func (c *Config) Validate() error {
	if c.Pipeline.RecallLimit < 1 || c.Pipeline.RecallLimit > 100 {
		return fmt.Errorf("pipeline.recall_limit must be between 1 and 100")
	}
	if c.Pipeline.RecallTimeout <= 0 {
		return fmt.Errorf("pipeline.recall_timeout must be positive")
	}

	switch c.Memory.Backend {
	case "memory":
	case "sqlite":
		if c.Memory.Driver != "sqlite" && c.Memory.Driver != "sqlite3" {
			return fmt.Errorf("invalid memory.driver '%s', must be one of: sqlite, sqlite3", c.Memory.Driver)
		}
		if c.Memory.Path == "" {
			return fmt.Errorf("memory.path cannot be empty for the sqlite backend")
		}
	case "redis":
		if c.Memory.Redis.Addr == "" {
			return fmt.Errorf("memory.redis.addr cannot be empty for the redis backend")
		}
	default:
		return fmt.Errorf("invalid memory.backend '%s', must be one of: memory, sqlite, redis", c.Memory.Backend)
	}
	if c.Memory.MaxPerOwner < 1 {
		return fmt.Errorf("memory.max_per_owner must be at least 1")
	}
	if c.Memory.WriteTimeout <= 0 {
		return fmt.Errorf("memory.write_timeout must be positive")
	}
	if c.Memory.Workers < 1 || c.Memory.Workers > 64 {
		return fmt.Errorf("memory.workers must be between 1 and 64")
	}
	if c.Memory.QueueSize < 1 {
		return fmt.Errorf("memory.queue_size must be at least 1")
	}

	if c.Sessions.HistorySize < 1 {
		return fmt.Errorf("sessions.history_size must be at least 1")
	}
	if c.Sessions.IdleTimeout < 0 {
		return fmt.Errorf("sessions.idle_timeout cannot be negative")
	}
	if c.Sessions.ReapSchedule != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.Sessions.ReapSchedule); err != nil {
			return fmt.Errorf("invalid sessions.reap_schedule '%s': %w", c.Sessions.ReapSchedule, err)
		}
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}
	if c.Server.MaxInputBytes < 1 {
		return fmt.Errorf("server.max_input_bytes must be at least 1")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid log format '%s', must be 'console' or 'json'", c.Logging.Format)
	}

	if c.Personas.Default == "" {
		return fmt.Errorf("personas.default cannot be empty")
	}

	return nil
}

// writeConfigFile writes a Config struct to a YAML file.
func writeConfigFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// expandPath expands ~ to the user's home directory in a path string.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
