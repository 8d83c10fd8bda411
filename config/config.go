// Package config defines the tasksync configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level tasksync configuration, shared by the CLI and
// the dev stand-in daemon.
type Config struct {
	API      APIConfig    `json:"api" yaml:"api"`
	Cache    CacheConfig  `json:"cache" yaml:"cache"`
	Sync     SyncConfig   `json:"sync" yaml:"sync"`
	Server   ServerConfig `json:"server" yaml:"server"`
	LogLevel string       `json:"log_level" yaml:"log_level"`
}

// APIConfig points the client at the task API.
type APIConfig struct {
	BaseURL        string `json:"base_url" yaml:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// CacheConfig controls the device-local fallback store.
type CacheConfig struct {
	Path string `json:"path" yaml:"path"` // SQLite file; empty means in-memory
}

// SyncConfig controls the ingestion cooldown.
type SyncConfig struct {
	CooldownSeconds int `json:"cooldown_seconds" yaml:"cooldown_seconds"`
}

// ServerConfig controls the dev stand-in server.
type ServerConfig struct {
	Addr          string `json:"addr" yaml:"addr"` // listen address, e.g., ":8490"
	SessionSecret string `json:"session_secret" yaml:"session_secret"`
	DevUser       string `json:"dev_user" yaml:"dev_user"`
	DevPassHash   string `json:"dev_pass_hash" yaml:"dev_pass_hash"` // bcrypt hash
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        "https://app.closerbase.com",
			TimeoutSeconds: 0, // rely on transport defaults
		},
		Cache: CacheConfig{
			Path: defaultCachePath(),
		},
		Sync: SyncConfig{
			CooldownSeconds: 60,
		},
		Server: ServerConfig{
			Addr:    ":8490",
			DevUser: "dev@closerbase.test",
		},
		LogLevel: "info",
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func defaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "" // falls back to the in-memory store
	}
	return filepath.Join(home, ".config", "tasksync", "cache.db")
}
