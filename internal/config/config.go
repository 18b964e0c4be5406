// Package config loads trailctl configuration from a file, TRAILCTL_
// environment variables, and command-line flags.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonwraymond/breadcrumb/ancestry"
	"github.com/jonwraymond/breadcrumb/cache"
	"github.com/jonwraymond/breadcrumb/observe"
	"github.com/jonwraymond/breadcrumb/trail"
)

// ErrInvalidConfig wraps every validation failure Load reports.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// EnvPrefix prefixes environment overrides, e.g. TRAILCTL_CACHE_BACKEND.
const EnvPrefix = "TRAILCTL"

// Store backends.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// Backends lists the supported cache backends.
var Backends = []string{BackendMemory, BackendBadger, BackendSQLite}

// Config is the top-level trailctl configuration.
type Config struct {
	Trail   trail.Config  `mapstructure:"trail"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Observe ObserveConfig `mapstructure:"observe"`
	Wiki    WikiConfig    `mapstructure:"wiki"`
	Server  ServerConfig  `mapstructure:"server"`
}

// CacheConfig selects and tunes the ancestor store.
type CacheConfig struct {
	Backend         string        `mapstructure:"backend"`
	Path            string        `mapstructure:"path"`
	Namespace       string        `mapstructure:"namespace"`
	KeyScheme       string        `mapstructure:"key_scheme"`
	TTL             time.Duration `mapstructure:"ttl"`
	Timeout         time.Duration `mapstructure:"timeout"`
	BreakerFailures int           `mapstructure:"breaker_failures"`
	BreakerReset    time.Duration `mapstructure:"breaker_reset"`
}

// ObserveConfig controls logging, tracing, and metrics.
type ObserveConfig struct {
	ServiceName string  `mapstructure:"service_name"`
	LogLevel    string  `mapstructure:"log_level"`
	Tracing     string  `mapstructure:"tracing"`
	SamplePct   float64 `mapstructure:"sample_pct"`
	Metrics     string  `mapstructure:"metrics"`
}

// WikiConfig points at the page fixture trailctl hosts.
type WikiConfig struct {
	Fixture string `mapstructure:"fixture"`
}

// ServerConfig controls `trailctl serve`.
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
	Jobs   int    `mapstructure:"jobs"`
}

// Option adjusts the viper instance before the file is read, typically to
// bind command-line flags.
type Option func(v *viper.Viper) error

// Load reads configuration from path (optional) with TRAILCTL_ environment
// overrides, applies opts, and validates the result.
func Load(path string, opts ...Option) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshalling: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	t := trail.DefaultConfig()
	v.SetDefault("trail.delimiter", t.Delimiter)
	v.SetDefault("trail.max_count", t.MaxCount)
	v.SetDefault("trail.overflow_marker", t.OverflowMarker)
	v.SetDefault("trail.self_link", t.SelfLink)
	v.SetDefault("trail.container_id", t.ContainerID)
	v.SetDefault("trail.fill_new_pages", t.FillNewPages)
	v.SetDefault("trail.max_depth", ancestry.DefaultMaxDepth)

	v.SetDefault("cache.backend", BackendMemory)
	v.SetDefault("cache.path", "")
	v.SetDefault("cache.namespace", cache.DefaultNamespace)
	v.SetDefault("cache.key_scheme", cache.KeyByTitle.String())
	v.SetDefault("cache.ttl", time.Duration(0))
	v.SetDefault("cache.timeout", time.Duration(0))
	v.SetDefault("cache.breaker_failures", 5)
	v.SetDefault("cache.breaker_reset", 10*time.Second)

	v.SetDefault("observe.service_name", "trailctl")
	v.SetDefault("observe.log_level", "info")
	v.SetDefault("observe.tracing", "none")
	v.SetDefault("observe.sample_pct", 1.0)
	v.SetDefault("observe.metrics", "none")

	v.SetDefault("wiki.fixture", "")

	v.SetDefault("server.listen", "127.0.0.1:8080")
	v.SetDefault("server.jobs", 8)
}

// Validate checks the configuration, collecting every problem found.
func (c *Config) Validate() []error {
	var errs []error

	if err := c.Trail.Validate(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, c.validateCache()...)

	oc := c.ObserverConfig("")
	if err := oc.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Server.Jobs < 1 {
		errs = append(errs, fmt.Errorf("server.jobs must be at least 1, got %d", c.Server.Jobs))
	}
	return errs
}

func (c *Config) validateCache() []error {
	var errs []error

	if !slices.Contains(Backends, c.Cache.Backend) {
		errs = append(errs, fmt.Errorf("cache.backend %q must be one of %s", c.Cache.Backend, strings.Join(Backends, ", ")))
	}
	if c.Cache.Backend != BackendMemory && strings.TrimSpace(c.Cache.Path) == "" {
		errs = append(errs, fmt.Errorf("cache.path is required for the %s backend", c.Cache.Backend))
	}
	if _, err := cache.ParseKeyScheme(c.Cache.KeyScheme); err != nil {
		errs = append(errs, err)
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must not be negative, got %s", c.Cache.TTL))
	}
	if c.Cache.Timeout < 0 {
		errs = append(errs, fmt.Errorf("cache.timeout must not be negative, got %s", c.Cache.Timeout))
	}
	if c.Cache.BreakerFailures < 1 {
		errs = append(errs, fmt.Errorf("cache.breaker_failures must be at least 1, got %d", c.Cache.BreakerFailures))
	}
	return errs
}

// KeyScheme returns the parsed cache.key_scheme.
func (c *Config) KeyScheme() cache.KeyScheme {
	scheme, _ := cache.ParseKeyScheme(c.Cache.KeyScheme)
	return scheme
}

// Policy returns the cache TTL policy.
func (c *Config) Policy() cache.Policy {
	p := cache.DefaultPolicy()
	p.TTL = c.Cache.TTL
	return p
}

// ObserverConfig converts the observe section for observe.NewObserver.
// Exporters named "none" or "" are disabled.
func (c *Config) ObserverConfig(version string) observe.Config {
	o := observe.Config{ServiceName: c.Observe.ServiceName, Version: version}

	o.Tracing.Exporter = c.Observe.Tracing
	o.Tracing.Enabled = enabled(c.Observe.Tracing)
	o.Tracing.SamplePct = c.Observe.SamplePct

	o.Metrics.Exporter = c.Observe.Metrics
	o.Metrics.Enabled = enabled(c.Observe.Metrics)

	o.Logging.Enabled = true
	o.Logging.Level = c.Observe.LogLevel
	return o
}

func enabled(exporter string) bool {
	return exporter != "" && exporter != "none"
}
