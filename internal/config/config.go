// Package config loads mermaidfix configuration from a TOML file with
// environment variable overrides. Every field has a working default; a
// missing config file is not an error.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/diagramtools/mermaidfix/pkg/cache"
	"github.com/diagramtools/mermaidfix/pkg/cascade"
	"github.com/diagramtools/mermaidfix/pkg/diagram"
	"github.com/diagramtools/mermaidfix/pkg/errors"
	"github.com/diagramtools/mermaidfix/pkg/pipeline"
	"github.com/diagramtools/mermaidfix/pkg/probe"
	"github.com/diagramtools/mermaidfix/pkg/repair"
)

// Cache backends.
const (
	BackendNone  = "none"
	BackendFile  = "file"
	BackendRedis = "redis"
)

// appName is used for the default cache directory.
const appName = "mermaidfix"

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr       string `toml:"addr"`
	CORSOrigin string `toml:"cors_origin"`
}

// CacheConfig selects and configures the result cache backend.
type CacheConfig struct {
	Backend  string `toml:"backend"`
	Dir      string `toml:"dir"`
	RedisURL string `toml:"redis_url"`
	TTL      string `toml:"ttl"`
}

// RepairConfig tunes the repair engine. The style property whitelist and the
// required hex length are renderer-version specific, so they live here
// instead of in code.
type RepairConfig struct {
	StyleProperties   []string `toml:"style_properties"`
	RequiredHexLength int      `toml:"required_hex_length"`
}

// ProbeConfig configures the render probe. With no command set, the built-in
// lenient probe is used.
type ProbeConfig struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	Timeout string   `toml:"timeout"`
}

// FallbackConfig overrides individual fallback diagrams. Empty fields keep
// the built-in entries.
type FallbackConfig struct {
	Flowchart    string `toml:"flowchart"`
	ClassDiagram string `toml:"class_diagram"`
	ErDiagram    string `toml:"er_diagram"`
}

// Config is the full mermaidfix configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Cache    CacheConfig    `toml:"cache"`
	Repair   RepairConfig   `toml:"repair"`
	Probe    ProbeConfig    `toml:"probe"`
	Fallback FallbackConfig `toml:"fallback"`
}

// Default returns the configuration used when no file or overrides exist.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:       ":8080",
			CORSOrigin: "*",
		},
		Cache: CacheConfig{
			Backend: BackendFile,
		},
	}
}

// Load reads the config file at path and applies MERMAIDFIX_* environment
// overrides. An empty path loads defaults plus overrides; a non-empty path
// that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeConfigNotFound, err, "config file %s", path)
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfigInvalid, err, "read config %s", path)
		}
		if err := toml.Unmarshal(raw, cfg); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfigInvalid, err, "parse config %s", path)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file values from the environment. Only settings that
// differ per deployment are exposed this way.
func applyEnv(cfg *Config) {
	if v := os.Getenv("MERMAIDFIX_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("MERMAIDFIX_CORS_ORIGIN"); v != "" {
		cfg.Server.CORSOrigin = v
	}
	if v := os.Getenv("MERMAIDFIX_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("MERMAIDFIX_CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := os.Getenv("MERMAIDFIX_REDIS_URL"); v != "" {
		cfg.Cache.RedisURL = v
	}
	if v := os.Getenv("MERMAIDFIX_CACHE_TTL"); v != "" {
		cfg.Cache.TTL = v
	}
	if v := os.Getenv("MERMAIDFIX_PROBE_COMMAND"); v != "" {
		cfg.Probe.Command = v
	}
	if v := os.Getenv("MERMAIDFIX_PROBE_TIMEOUT"); v != "" {
		cfg.Probe.Timeout = v
	}
	if v := os.Getenv("MERMAIDFIX_HEX_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Repair.RequiredHexLength = n
		}
	}
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case "", BackendNone, BackendFile, BackendRedis:
	default:
		return errors.New(errors.ErrCodeConfigInvalid, "unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == BackendRedis && c.Cache.RedisURL == "" {
		return errors.New(errors.ErrCodeConfigInvalid, "cache backend redis requires redis_url")
	}
	if c.Cache.TTL != "" {
		if _, err := time.ParseDuration(c.Cache.TTL); err != nil {
			return errors.Wrap(errors.ErrCodeConfigInvalid, err, "cache ttl %q", c.Cache.TTL)
		}
	}
	if c.Probe.Timeout != "" {
		if _, err := time.ParseDuration(c.Probe.Timeout); err != nil {
			return errors.Wrap(errors.ErrCodeConfigInvalid, err, "probe timeout %q", c.Probe.Timeout)
		}
	}
	if c.Repair.RequiredHexLength < 0 {
		return errors.New(errors.ErrCodeConfigInvalid, "required_hex_length must be positive")
	}
	return nil
}

// CacheTTL returns the configured result TTL, or the pipeline default.
func (c *Config) CacheTTL() time.Duration {
	if c.Cache.TTL == "" {
		return pipeline.DefaultCacheTTL
	}
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return pipeline.DefaultCacheTTL
	}
	return d
}

// RepairEngine builds the repair engine from the configured whitelist and
// hex policy. Zero-value fields keep engine defaults.
func (c *Config) RepairEngine() *repair.Engine {
	return repair.New(repair.Config{
		StyleProperties:   c.Repair.StyleProperties,
		RequiredHexLength: c.Repair.RequiredHexLength,
	})
}

// Library builds the fallback library with any configured overrides.
func (c *Config) Library() *diagram.Library {
	overrides := map[diagram.Grammar]string{}
	if c.Fallback.Flowchart != "" {
		overrides[diagram.Flowchart] = c.Fallback.Flowchart
	}
	if c.Fallback.ClassDiagram != "" {
		overrides[diagram.ClassDiagram] = c.Fallback.ClassDiagram
	}
	if c.Fallback.ErDiagram != "" {
		overrides[diagram.ErDiagram] = c.Fallback.ErDiagram
	}
	if len(overrides) == 0 {
		return diagram.DefaultLibrary()
	}
	return diagram.NewLibrary(overrides)
}

// BuildCache constructs the configured cache backend.
func (c *Config) BuildCache() (cache.Cache, error) {
	switch c.Cache.Backend {
	case "", BackendNone:
		return cache.NewNullCache(), nil
	case BackendFile:
		dir := c.Cache.Dir
		if dir == "" {
			var err error
			dir, err = DefaultCacheDir()
			if err != nil {
				return cache.NewNullCache(), nil
			}
		}
		return cache.NewFileCache(dir)
	case BackendRedis:
		return cache.NewRedisCache(c.Cache.RedisURL)
	default:
		return nil, errors.New(errors.ErrCodeConfigInvalid, "unknown cache backend %q", c.Cache.Backend)
	}
}

// BuildProbe constructs the configured render probe.
func (c *Config) BuildProbe() (cascade.Probe, error) {
	if c.Probe.Command == "" {
		return probe.Lenient{}, nil
	}
	timeout := time.Duration(0)
	if c.Probe.Timeout != "" {
		timeout, _ = time.ParseDuration(c.Probe.Timeout)
	}
	return probe.NewCommand(c.Probe.Command, c.Probe.Args, timeout)
}

// ProbeScope names the probe for cache key namespacing, so results checked
// by different renderers never share cache entries.
func (c *Config) ProbeScope() string {
	if c.Probe.Command == "" {
		return "lenient"
	}
	return filepath.Base(c.Probe.Command)
}

// DefaultCacheDir returns the cache directory using the XDG convention
// (~/.cache/mermaidfix).
func DefaultCacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
