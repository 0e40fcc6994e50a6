package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/halftone/internal/server"
	"github.com/matzehuels/halftone/pkg/pipeline"
)

// Cache and store backends selectable in the config file.
const (
	backendFile   = "file"
	backendMemory = "memory"
	backendRedis  = "redis"
	backendNone   = "none"
	backendMongo  = "mongo"
)

// defaultMemoryEntries bounds the memory backend when cache.max_entries is
// unset.
const defaultMemoryEntries = 256

// Config is the on-disk CLI configuration:
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//	ttl = "72h"
//
//	[store]
//	backend = "mongo"
//	mongo_uri = "mongodb://localhost:27017"
//
//	[render]
//	workers = 8
//
//	[server]
//	addr = ":9000"
type Config struct {
	Cache  CacheConfig  `toml:"cache"`
	Store  StoreConfig  `toml:"store"`
	Render RenderConfig `toml:"render"`
	Server ServerConfig `toml:"server"`
}

// CacheConfig selects the artifact cache.
type CacheConfig struct {
	Backend   string   `toml:"backend"`
	Dir       string   `toml:"dir"`
	RedisAddr string   `toml:"redis_addr"`
	TTL       Duration `toml:"ttl"`
	Compress  bool     `toml:"compress"`
	// MaxEntries bounds the memory backend.
	MaxEntries int `toml:"max_entries"`
}

// StoreConfig selects the preset store.
type StoreConfig struct {
	Backend       string `toml:"backend"`
	Dir           string `toml:"dir"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

// RenderConfig holds render defaults.
type RenderConfig struct {
	Workers int `toml:"workers"`
	// Palette is applied to dithering nodes that name no palette or colors.
	Palette string `toml:"palette"`
}

// ServerConfig holds "serve" defaults.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Duration decodes TOML strings such as "24h".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// defaultConfig returns the configuration used when no file exists.
func defaultConfig() Config {
	return Config{
		Cache:  CacheConfig{Backend: backendFile},
		Store:  StoreConfig{Backend: backendFile},
		Render: RenderConfig{Workers: pipeline.DefaultWorkers},
		Server: ServerConfig{Addr: server.DefaultAddr},
	}
}

// loadConfig reads path over the defaults. An empty path selects the
// default location; a missing default file is not an error.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	explicit := path != ""
	if !explicit {
		dir, err := configDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(dir, "config.toml")
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("config %s: unknown keys %v", path, undecoded)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Cache.Backend {
	case backendFile, backendMemory, backendRedis, backendNone:
	default:
		return fmt.Errorf("cache.backend must be file, memory, redis or none, got %q", c.Cache.Backend)
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries must not be negative")
	}
	if c.Cache.Backend == backendRedis && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache.redis_addr is required for the redis backend")
	}
	switch c.Store.Backend {
	case backendFile, backendMongo:
	default:
		return fmt.Errorf("store.backend must be file or mongo, got %q", c.Store.Backend)
	}
	if c.Store.Backend == backendMongo && c.Store.MongoURI == "" {
		return fmt.Errorf("store.mongo_uri is required for the mongo backend")
	}
	if c.Render.Workers < 0 {
		return fmt.Errorf("render.workers must not be negative")
	}
	return nil
}
