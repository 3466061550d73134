// Package config provides configuration loading and structs for the article search core.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Index   IndexConfig   `yaml:"index"`
	Storage StorageConfig `yaml:"storage"`
	Search  SearchConfig  `yaml:"search"`
	Scan    ScanConfig    `yaml:"scan"`
}

// IndexConfig names the article index.
type IndexConfig struct {
	Name string `yaml:"name"`
}

// StorageConfig holds paths for the row database and the bleve indices.
// InMemory keeps both in memory and ignores the paths.
type StorageConfig struct {
	InMemory       bool   `yaml:"in_memory"`
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// SearchConfig holds bounded page sizes.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	TitleLimit   int `yaml:"title_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// ScanConfig holds exhaustive scan settings.
type ScanConfig struct {
	PageSize      int           `yaml:"page_size"`
	CursorTimeout time.Duration `yaml:"cursor_timeout"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	if !cfg.Storage.InMemory {
		configDir := filepath.Dir(path)
		cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
		cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if c.Index.Name == "" {
		return fmt.Errorf("index.name is required")
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit (%d) exceeds search.max_limit (%d)", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if c.Scan.PageSize < 0 {
		return fmt.Errorf("scan.page_size must not be negative")
	}
	if c.Scan.CursorTimeout < 0 {
		return fmt.Errorf("scan.cursor_timeout must not be negative")
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
