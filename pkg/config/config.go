package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const Version = "0.3.0"

// Config holds application configuration
type Config struct {
	// Output configuration
	Sinks      []string `yaml:"sinks" validate:"min=1,dive,oneof=csv json sqlite"`
	JSONIndent bool     `yaml:"json_indent"`

	// SQLite sink configuration
	SQLiteCacheSize   int `yaml:"sqlite_cache_size" validate:"min=0"`   // KB
	SQLiteBusyTimeout int `yaml:"sqlite_busy_timeout" validate:"min=0"` // milliseconds

	// Logging
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// Server configuration
	Host          string `yaml:"host" validate:"required"`
	Port          int    `yaml:"port" validate:"min=0,max=65535"`
	MaxUploadSize int64  `yaml:"max_upload_size" validate:"min=1"` // bytes

	// Cache configuration
	CacheType string `yaml:"cache_type" validate:"oneof=memory redis"`
	CacheTTL  int    `yaml:"cache_ttl" validate:"min=0"` // seconds
	CacheSize int    `yaml:"cache_size" validate:"min=1"`
	RedisHost string `yaml:"redis_host"`
	RedisPort int    `yaml:"redis_port" validate:"min=0,max=65535"`

	// Debug
	Debug bool `yaml:"debug"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Sinks:             []string{"csv"},
		JSONIndent:        true,
		SQLiteCacheSize:   2000,
		SQLiteBusyTimeout: 5000,
		LogLevel:          "info",
		Host:              "0.0.0.0",
		Port:              9191,
		MaxUploadSize:     32 << 20, // 32MB
		CacheType:         "memory",
		CacheTTL:          300,
		CacheSize:         256,
		RedisHost:         "localhost",
		RedisPort:         6379,
		Debug:             false,
	}
}

// LoadFile overlays the YAML file at path onto cfg
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv(cfg *Config) {
	if val := os.Getenv("TABGRAPH_SINKS"); val != "" {
		cfg.Sinks = splitList(val)
	}
	if val := os.Getenv("JSON_INDENT"); val != "" {
		cfg.JSONIndent = parseBool(val)
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.LogLevel = strings.ToLower(val)
	}
	if val := os.Getenv("HOST"); val != "" {
		cfg.Host = val
	}
	if val := os.Getenv("PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Port = port
		}
	}
	if val := os.Getenv("MAX_UPLOAD_SIZE"); val != "" {
		if size, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.MaxUploadSize = size
		}
	}
	if val := os.Getenv("CACHE_TYPE"); val != "" {
		cfg.CacheType = val
	}
	if val := os.Getenv("CACHE_TTL"); val != "" {
		if ttl, err := strconv.Atoi(val); err == nil {
			cfg.CacheTTL = ttl
		}
	}
	if val := os.Getenv("CACHE_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			cfg.CacheSize = size
		}
	}
	if val := os.Getenv("REDIS_HOST"); val != "" {
		cfg.RedisHost = val
	}
	if val := os.Getenv("REDIS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.RedisPort = port
		}
	}
	if val := os.Getenv("DEBUG"); val != "" {
		cfg.Debug = parseBool(val)
	}
}

// Load builds the effective configuration: defaults, then the YAML file named
// by TABGRAPH_CONFIG, then environment overrides. The result is validated.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("TABGRAPH_CONFIG"); path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	LoadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		messages = append(messages, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(messages, "; "))
}

// Level returns the zerolog level for LogLevel. Debug forces debug level.
func (c *Config) Level() zerolog.Level {
	if c.Debug {
		return zerolog.DebugLevel
	}
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func splitList(val string) []string {
	parts := strings.Split(val, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(strings.ToLower(p)); p != "" {
			result = append(result, p)
		}
	}
	return result
}

func parseBool(val string) bool {
	val = strings.ToLower(val)
	return val == "true" || val == "1" || val == "yes"
}
