// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	// Host and Port form the listen address.
	Host string `json:"host" yaml:"host" mapstructure:"host"`
	Port int    `json:"port" yaml:"port" mapstructure:"port"`

	// RequestTimeout bounds a single request's pipeline run. Zero disables it.
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout" mapstructure:"request_timeout"`

	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`

	// Version is reported as "v" in every response envelope.
	Version string `json:"version" yaml:"version" mapstructure:"version"`
}

// StoreConfig locates the index, record and grid-file stores.
type StoreConfig struct {
	// DataDir is the base directory (contains index/ and grids/).
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`

	// InMemoryGrids keeps the grid-file store in memory (tests, demos).
	InMemoryGrids bool `json:"in_memory_grids" yaml:"in_memory_grids" mapstructure:"in_memory_grids"`

	// GridCacheTTL memoizes decoded grid files. Zero disables the cache.
	GridCacheTTL time.Duration `json:"grid_cache_ttl" yaml:"grid_cache_ttl" mapstructure:"grid_cache_ttl"`
}

// MatchConfig controls the resolution pipeline.
type MatchConfig struct {
	// StrictGrids fails the request when a referenced grid file is missing.
	// When false the missing file is reported as a warning.
	StrictGrids bool `json:"strict_grids" yaml:"strict_grids" mapstructure:"strict_grids"`

	// DefaultLimit is the page size when the caller gives none (default 100).
	DefaultLimit int `json:"default_limit" yaml:"default_limit" mapstructure:"default_limit"`
}

// Config groups all service settings.
type Config struct {
	Server ServerConfig `json:"server" yaml:"server" mapstructure:"server"`
	Store  StoreConfig  `json:"store" yaml:"store" mapstructure:"store"`
	Match  MatchConfig  `json:"match" yaml:"match" mapstructure:"match"`
}

// DefaultConfig returns a Config with the service defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:           "localhost",
			Port:           8080,
			RequestTimeout: 30 * time.Second,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   60 * time.Second,
			Version:        "1.0",
		},
		Store: StoreConfig{
			DataDir:      "data",
			GridCacheTTL: 10 * time.Minute,
		},
		Match: MatchConfig{
			StrictGrids:  false,
			DefaultLimit: 100,
		},
	}
}
