// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kkyr/fig"
)

const (
	configEnv             = "GEONEAR"
	DefaultDescriptionTpl = "You are currently near {{.Location}}, {{.District}}, {{.State}}."
	DefaultServiceName    = "geonear"
)

// Cache backends
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config represents the application's configuration structure.
type Config struct {
	LogLevel slog.Level `fig:"loglevel" default:"0"`

	Catalog struct {
		// File path, http(s):// URL or postgres:// DSN
		Source  string        `fig:"source" default:"India_Locations.csv"`
		Sheet   string        `fig:"sheet"`
		Table   string        `fig:"table" default:"places"`
		Timeout time.Duration `fig:"timeout" default:"30s"`
	} `fig:"catalog"`

	Search struct {
		Candidates int `fig:"candidates" default:"8"`
	} `fig:"search"`

	Cache struct {
		// Allowed values: memory, redis, none
		Backend       string        `fig:"backend" default:"memory"`
		TTL           time.Duration `fig:"ttl" default:"1h"`
		Capacity      int           `fig:"capacity" default:"10000"`
		PurgeInterval time.Duration `fig:"purge_interval" default:"5m"`
	} `fig:"cache"`

	Redis struct {
		Addr     string `fig:"addr" default:"127.0.0.1:6379"`
		Password string `fig:"password"`
		DB       int    `fig:"db"`
	} `fig:"redis"`

	Server struct {
		Listen      string `fig:"listen" default:":8000"`
		AllowOrigin string `fig:"allow_origin" default:"*"`
		ServiceName string `fig:"service_name"`
	} `fig:"server"`

	Metrics struct {
		Disable bool   `fig:"disable"`
		Path    string `fig:"path" default:"/metrics"`
	} `fig:"metrics"`

	Templates struct {
		Description string `fig:"description"`
	} `fig:"templates"`
}

func NewFromFile(path, file string) (*Config, error) {
	conf := new(Config)
	_, err := os.Stat(filepath.Join(path, file))
	if err != nil {
		return conf, fmt.Errorf("failed to read Config: %w", err)
	}
	if err = fig.Load(conf, fig.Dirs(path), fig.File(file), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func New() (*Config, error) {
	conf := new(Config)
	if err := fig.Load(conf, fig.AllowNoFile(), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func (c *Config) Validate() error {
	if c.Catalog.Source == "" {
		return fmt.Errorf("no catalog source configured")
	}
	switch c.Cache.Backend {
	case CacheMemory, CacheRedis, CacheNone:
	default:
		return fmt.Errorf("invalid cache backend: %s", c.Cache.Backend)
	}
	if c.Search.Candidates < 1 {
		return fmt.Errorf("invalid number of search candidates: %d", c.Search.Candidates)
	}
	if c.Cache.Backend != CacheNone && c.Cache.TTL <= 0 {
		return fmt.Errorf("invalid cache TTL: %s", c.Cache.TTL)
	}
	if c.Cache.Backend == CacheMemory && c.Cache.PurgeInterval <= 0 {
		return fmt.Errorf("invalid cache purge interval: %s", c.Cache.PurgeInterval)
	}
	if c.Cache.Backend == CacheMemory && c.Cache.Capacity < 1 {
		return fmt.Errorf("invalid cache capacity: %d", c.Cache.Capacity)
	}
	if c.Server.ServiceName == "" {
		c.Server.ServiceName = DefaultServiceName
	}
	if c.Templates.Description == "" {
		c.Templates.Description = DefaultDescriptionTpl
	}

	return nil
}
