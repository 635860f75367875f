package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration for a margot run.
type Config struct {
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Source    SourceConfig    `yaml:"source"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ArtifactsConfig names the files the blocklist generator appends to.
type ArtifactsConfig struct {
	AddressPath  string `yaml:"address_path"`
	IdentityPath string `yaml:"identity_path"`
	TicketURL    string `yaml:"ticket_url"`
}

// SourceConfig selects where the consensus snapshot is loaded from. The
// first non-empty of Document, Redis.Address and Consensus wins.
type SourceConfig struct {
	Consensus  string      `yaml:"consensus"`
	Microdescs string      `yaml:"microdescs"`
	Document   string      `yaml:"document"`
	Redis      RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"` // holds the JSON snapshot document
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() *Config {
	return &Config{
		Artifacts: ArtifactsConfig{
			AddressPath:  "torrc.d/bad.conf",
			IdentityPath: "approved-routers.d/approved-routers.conf",
			TicketURL:    "https://gitlab.torproject.org/tpo/network-health/bad-relay-reports/-/issues",
		},
		Source: SourceConfig{
			Consensus:  "cached-consensus",
			Microdescs: "cached-microdescs",
			Redis: RedisConfig{
				Key: "margot_consensus",
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file on top of DefaultConfig.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.Artifacts.AddressPath == "" {
		return fmt.Errorf("artifacts.address_path is required")
	}
	if c.Artifacts.IdentityPath == "" {
		return fmt.Errorf("artifacts.identity_path is required")
	}
	if c.Source.Document == "" && c.Source.Redis.Address == "" && c.Source.Consensus == "" {
		return fmt.Errorf("source: one of document, redis.address or consensus is required")
	}
	if c.Source.Redis.Address != "" && c.Source.Redis.Key == "" {
		return fmt.Errorf("source.redis.key is required with source.redis.address")
	}
	if c.Source.Redis.DB < 0 {
		return fmt.Errorf("source.redis.db must be >= 0")
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("logging.level: unknown level %q", s)
}
