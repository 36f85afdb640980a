// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for botgate.
package config

import (
	"errors"
	"fmt"

	"github.com/flemzord/botgate/internal/botapi"
	"github.com/flemzord/botgate/internal/dedup"
	"github.com/flemzord/botgate/internal/dispatch"
	"github.com/flemzord/botgate/internal/gateway"
	"github.com/flemzord/botgate/internal/logging"
)

// Config is the top-level configuration structure.
type Config struct {
	Log       logging.Config  `yaml:"log"`
	Gateway   gateway.Config  `yaml:"gateway"`
	Directory DirectoryConfig `yaml:"directory"`
	Dedup     DedupConfig     `yaml:"dedup"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	API       botapi.Config   `yaml:"api"`
	Watchdog  WatchdogConfig  `yaml:"watchdog"`
}

// DirectoryConfig selects the tenant store backend.
type DirectoryConfig struct {
	Driver string `yaml:"driver"` // "sqlite"
	Path   string `yaml:"path"`
}

// DedupConfig selects the dedup backend. Redis settings apply only when
// the driver is "redis".
type DedupConfig struct {
	dedup.Config `yaml:",inline"`
	Redis        RedisConfig `yaml:"redis"`
}

// DispatchConfig controls how accepted deliveries reach processing units.
type DispatchConfig struct {
	Mode      string              `yaml:"mode"` // "inline" or "queued"
	Workers   int                 `yaml:"workers"`
	QueueSize int                 `yaml:"queue_size"`
	Queue     QueueConfig         `yaml:"queue"`
	Flood     dispatch.FloodConfig `yaml:"flood"`
}

// QueueConfig selects the queue backend for queued mode.
type QueueConfig struct {
	Driver string      `yaml:"driver"` // "memory" or "redis"
	Redis  RedisConfig `yaml:"redis"`
}

// RedisConfig holds connection settings for a Redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// WatchdogConfig controls the periodic webhook registration check.
type WatchdogConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

// Defaults fills zero values across all sections.
func (c *Config) Defaults() {
	c.Log.Defaults()
	c.Gateway.Defaults()
	c.API.Defaults()
	c.Dedup.Config.Defaults()
	c.Dispatch.Flood.Defaults()

	if c.Directory.Driver == "" {
		c.Directory.Driver = "sqlite"
	}
	if c.Directory.Path == "" {
		c.Directory.Path = "botgate.db"
	}
	if c.Dispatch.Mode == "" {
		c.Dispatch.Mode = "inline"
	}
	if c.Dispatch.Workers <= 0 {
		c.Dispatch.Workers = 4
	}
	if c.Dispatch.QueueSize <= 0 {
		c.Dispatch.QueueSize = 1024
	}
	if c.Dispatch.Queue.Driver == "" {
		c.Dispatch.Queue.Driver = "memory"
	}
	if c.Watchdog.Schedule == "" {
		c.Watchdog.Schedule = "@every 15m"
	}
}

// Validate checks structural validity across all sections. All problems
// are reported at once.
func Validate(cfg *Config) error {
	var errs []error

	if err := cfg.Log.Validate(); err != nil {
		errs = append(errs, err)
	}

	if cfg.Directory.Driver != "sqlite" {
		errs = append(errs, fmt.Errorf("config: unknown directory driver %q (want sqlite)", cfg.Directory.Driver))
	}

	switch cfg.Dedup.Driver {
	case "memory":
	case "redis":
		if cfg.Dedup.Redis.Addr == "" {
			errs = append(errs, errors.New("config: dedup.redis.addr is required for the redis driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown dedup driver %q (want memory or redis)", cfg.Dedup.Driver))
	}

	switch cfg.Dispatch.Mode {
	case "inline":
	case "queued":
		switch cfg.Dispatch.Queue.Driver {
		case "memory":
		case "redis":
			if cfg.Dispatch.Queue.Redis.Addr == "" {
				errs = append(errs, errors.New("config: dispatch.queue.redis.addr is required for the redis driver"))
			}
		default:
			errs = append(errs, fmt.Errorf("config: unknown queue driver %q (want memory or redis)", cfg.Dispatch.Queue.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown dispatch mode %q (want inline or queued)", cfg.Dispatch.Mode))
	}

	return errors.Join(errs...)
}
