// Package config manages clipvault settings. Settings live in a single TOML
// file; a missing file yields defaults, and invalid values are clamped back
// to their defaults rather than rejected.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	DBPath   string `toml:"db_path"`
	BlobPath string `toml:"blob_path"`

	PollIntervalMS  int `toml:"poll_interval_ms"`
	MaxHistoryItems int `toml:"max_history_items"`
	MaxHistoryDays  int `toml:"max_history_days"`

	MaxBlobSize   int64 `toml:"max_blob_size_bytes"`
	MaxInlineSize int64 `toml:"max_inline_size_bytes"`
	PreviewLength int   `toml:"preview_length"`
	ThumbnailDim  int   `toml:"thumbnail_max_dim"`

	BroadMatch   bool `toml:"broad_match"`
	FuzzySearch  bool `toml:"fuzzy_search"`
	SearchWindow int  `toml:"search_window"`

	APIPort int `toml:"api_port"`
}

func Default() *Config {
	return &Config{
		PollIntervalMS:  500,
		MaxHistoryItems: 1000,
		MaxHistoryDays:  30,
		MaxBlobSize:     50 * 1024 * 1024,
		MaxInlineSize:   1 * 1024 * 1024,
		PreviewLength:   500,
		ThumbnailDim:    256,
		BroadMatch:      false,
		FuzzySearch:     true,
		SearchWindow:    500,
		APIPort:         54321,
	}
}

// Load reads the configuration at path. A missing file returns defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.validate()
	return cfg, nil
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

func (c *Config) validate() {
	def := Default()
	if c.PollIntervalMS <= 0 {
		c.PollIntervalMS = def.PollIntervalMS
	}
	if c.MaxHistoryItems <= 0 {
		c.MaxHistoryItems = def.MaxHistoryItems
	}
	if c.MaxHistoryDays <= 0 {
		c.MaxHistoryDays = def.MaxHistoryDays
	}
	if c.MaxBlobSize <= 0 {
		c.MaxBlobSize = def.MaxBlobSize
	}
	if c.MaxInlineSize <= 0 || c.MaxInlineSize > c.MaxBlobSize {
		c.MaxInlineSize = def.MaxInlineSize
	}
	if c.PreviewLength <= 0 {
		c.PreviewLength = def.PreviewLength
	}
	if c.ThumbnailDim <= 0 {
		c.ThumbnailDim = def.ThumbnailDim
	}
	if c.SearchWindow <= 0 {
		c.SearchWindow = def.SearchWindow
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		c.APIPort = def.APIPort
	}
}
