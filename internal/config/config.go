// Package config loads application configuration from an optional YAML
// file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Scanner  ScannerConfig  `yaml:"scanner" json:"scanner"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host" json:"host"`
	Port         int           `yaml:"port" json:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	EnableCORS   bool          `yaml:"enable_cors" json:"enable_cors"`
}

// DatabaseConfig holds storage settings. Type is "sqlite" or "postgres".
type DatabaseConfig struct {
	Type     string `yaml:"type" json:"type"`
	Path     string `yaml:"path" json:"path"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
	Database string `yaml:"database" json:"database"`
}

// ScannerConfig holds library synchronization settings.
type ScannerConfig struct {
	BatchSize       int      `yaml:"batch_size" json:"batch_size"`
	MaxErrorDetails int      `yaml:"max_error_details" json:"max_error_details"`
	AudioExtensions []string `yaml:"audio_extensions" json:"audio_extensions"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			EnableCORS:   true,
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			Path: "music.db",
			Host: "localhost",
			Port: 5432,
		},
		Scanner: ScannerConfig{
			BatchSize:       50,
			MaxErrorDetails: 50,
			AudioExtensions: []string{
				".mp3", ".flac", ".m4a", ".wav", ".ogg", ".wma", ".aac", ".alac", ".opus",
			},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load builds a Config from defaults, an optional YAML file, and
// environment overrides, in that order of precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if cfg.Scanner.BatchSize <= 0 {
		cfg.Scanner.BatchSize = 50
	}
	if cfg.Scanner.MaxErrorDetails <= 0 {
		cfg.Scanner.MaxErrorDetails = 50
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	overrideString(&c.Server.Host, "TREMORS_HOST")
	overrideInt(&c.Server.Port, "TREMORS_PORT")
	overrideString(&c.Database.Type, "DATABASE_TYPE")
	overrideString(&c.Database.Path, "SQLITE_PATH")
	overrideString(&c.Database.Host, "POSTGRES_HOST")
	overrideInt(&c.Database.Port, "POSTGRES_PORT")
	overrideString(&c.Database.Username, "POSTGRES_USER")
	overrideString(&c.Database.Password, "POSTGRES_PASSWORD")
	overrideString(&c.Database.Database, "POSTGRES_DB")
	overrideInt(&c.Scanner.BatchSize, "TREMORS_SCAN_BATCH_SIZE")
	overrideString(&c.Logging.Level, "TREMORS_LOG_LEVEL")
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

// Address returns the host:port the HTTP server binds to.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
