// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/epandda/internal/gridfs"
	"github.com/pdiddy/epandda/internal/index"
	"github.com/pdiddy/epandda/internal/logging"
	"github.com/pdiddy/epandda/internal/records"
	"github.com/pdiddy/epandda/pkg/types"
)

// flagKeys maps command-line flags to config keys. A flag overrides the
// config file and environment only when it was set explicitly.
var flagKeys = map[string]string{
	"host":            "server.host",
	"port":            "server.port",
	"request-timeout": "server.request_timeout",
	"api-version":     "server.version",
	"data-dir":        "store.data_dir",
	"in-memory-grids": "store.in_memory_grids",
	"grid-cache-ttl":  "store.grid_cache_ttl",
	"strict-grids":    "match.strict_grids",
	"default-limit":   "match.default_limit",
}

// loadConfig layers defaults, the config file, EPANDDA_* environment
// variables and explicitly set flags of cmd.
func loadConfig(cmd *cobra.Command) (types.Config, error) {
	def := types.DefaultConfig()
	v := viper.GetViper()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("server.host", def.Server.Host)
	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("server.request_timeout", def.Server.RequestTimeout)
	v.SetDefault("server.read_timeout", def.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", def.Server.WriteTimeout)
	v.SetDefault("server.version", def.Server.Version)
	v.SetDefault("store.data_dir", def.Store.DataDir)
	v.SetDefault("store.in_memory_grids", def.Store.InMemoryGrids)
	v.SetDefault("store.grid_cache_ttl", def.Store.GridCacheTTL)
	v.SetDefault("match.strict_grids", def.Match.StrictGrids)
	v.SetDefault("match.default_limit", def.Match.DefaultLimit)

	for flag, key := range flagKeys {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return types.Config{}, fmt.Errorf("binding --%s: %w", flag, err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("reading config: %w", err)
	}
	if cfg.Match.DefaultLimit <= 0 {
		cfg.Match.DefaultLimit = def.Match.DefaultLimit
	}
	return cfg, nil
}

// stores bundles the three local stores.
type stores struct {
	index   *index.Store
	grids   *gridfs.Store
	records *records.Store
}

// reader returns the grid reader, cached when a TTL is configured.
func (s *stores) reader(cfg types.StoreConfig) gridfs.Reader {
	if cfg.GridCacheTTL > 0 {
		return gridfs.NewCached(s.grids, cfg.GridCacheTTL)
	}
	return s.grids
}

func (s *stores) Close() {
	if s.records != nil {
		s.records.Close()
	}
	if s.grids != nil {
		s.grids.Close()
	}
	if s.index != nil {
		s.index.Close()
	}
}

// openStores opens the index, grid and record stores under cfg.DataDir.
// On error, stores opened so far are closed.
func openStores(cfg types.StoreConfig) (*stores, error) {
	s := &stores{}
	var err error

	s.index, err = index.NewStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	s.grids, err = gridfs.Open(cfg.DataDir, cfg.InMemoryGrids, logging.Default())
	if err != nil {
		s.Close()
		return nil, err
	}
	s.records, err = records.NewStore(cfg.DataDir)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// addStoreFlags registers the flags shared by commands that open the stores.
func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("data-dir", "data", "base directory for the stores (contains index/ and grids/)")
	cmd.Flags().Bool("in-memory-grids", false, "keep grid files in memory (nothing persists)")
	cmd.Flags().Duration("grid-cache-ttl", 10*time.Minute, "grid file cache TTL (0 disables the cache)")
	cmd.Flags().Bool("strict-grids", false, "fail when a referenced grid file is missing")
}
