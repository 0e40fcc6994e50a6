package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/halftone/internal/server"
	"github.com/matzehuels/halftone/pkg/cache"
	"github.com/matzehuels/halftone/pkg/pipeline"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	want := Config{
		Cache:  CacheConfig{Backend: backendFile},
		Store:  StoreConfig{Backend: backendFile},
		Render: RenderConfig{Workers: pipeline.DefaultWorkers},
		Server: ServerConfig{Addr: server.DefaultAddr},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigDefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	dir := filepath.Join(home, appName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[render]\npalette = \"commodore64\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Render.Palette != "commodore64" {
		t.Errorf("palette = %q, want commodore64", cfg.Render.Palette)
	}
	if cfg.Render.Workers != pipeline.DefaultWorkers {
		t.Errorf("workers = %d, want default %d", cfg.Render.Workers, pipeline.DefaultWorkers)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
[cache]
backend = "redis"
redis_addr = "localhost:6379"
ttl = "72h"
compress = true

[store]
backend = "mongo"
mongo_uri = "mongodb://localhost:27017"
mongo_database = "art"

[render]
workers = 8
palette = "gameBoyOriginal"

[server]
addr = ":9000"
`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	want := Config{
		Cache: CacheConfig{
			Backend:   backendRedis,
			RedisAddr: "localhost:6379",
			TTL:       Duration{72 * time.Hour},
			Compress:  true,
		},
		Store: StoreConfig{
			Backend:       backendMongo,
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "art",
		},
		Render: RenderConfig{Workers: 8, Palette: "gameBoyOriginal"},
		Server: ServerConfig{Addr: ":9000"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown key", "[cache]\nbackend = \"file\"\ncolour = 1\n", "unknown keys"},
		{"bad ttl", "[cache]\nttl = \"soon\"\n", "load config"},
		{"bad cache backend", "[cache]\nbackend = \"memcached\"\n", "cache.backend"},
		{"redis without addr", "[cache]\nbackend = \"redis\"\n", "cache.redis_addr"},
		{"bad store backend", "[store]\nbackend = \"s3\"\n", "store.backend"},
		{"mongo without uri", "[store]\nbackend = \"mongo\"\n", "store.mongo_uri"},
		{"negative max entries", "[cache]\nbackend = \"memory\"\nmax_entries = -1\n", "cache.max_entries"},
		{"negative workers", "[render]\nworkers = -1\n", "render.workers"},
		{"malformed", "[cache\n", "load config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("loadConfig succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("loadConfig of a missing explicit file succeeded, want error")
	}
}

func TestDurationText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("90m")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if d.Duration != 90*time.Minute {
		t.Errorf("Duration = %v, want 1h30m", d.Duration)
	}
	text, err := d.MarshalText()
	if err != nil || string(text) != "1h30m0s" {
		t.Errorf("MarshalText = %q, %v", text, err)
	}
	if err := d.UnmarshalText([]byte("later")); err == nil {
		t.Error("UnmarshalText(later) succeeded, want error")
	}
}

func TestCLILoadConfigCached(t *testing.T) {
	c := New(os.Stderr, LogInfo)
	c.configPath = writeConfig(t, "[render]\nworkers = 3\n")

	cfg, err := c.loadConfig()
	if err != nil || cfg.Render.Workers != 3 {
		t.Fatalf("first load = %+v, %v", cfg.Render, err)
	}
	if err := os.Remove(c.configPath); err != nil {
		t.Fatal(err)
	}
	cfg, err = c.loadConfig()
	if err != nil || cfg.Render.Workers != 3 {
		t.Errorf("cached load = %+v, %v", cfg.Render, err)
	}
}

func TestNewCacheNone(t *testing.T) {
	for _, tt := range []struct {
		name    string
		cfg     CacheConfig
		noCache bool
	}{
		{"flag", CacheConfig{Backend: backendFile}, true},
		{"backend", CacheConfig{Backend: backendNone}, false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			ch, err := newCache(t.Context(), tt.cfg, tt.noCache, newLogger(io.Discard, LogInfo))
			if err != nil {
				t.Fatalf("newCache: %v", err)
			}
			if _, ok, _ := ch.Get(t.Context(), "k"); ok {
				t.Error("null cache returned a hit")
			}
		})
	}
}

func TestNewCacheFile(t *testing.T) {
	dir := t.TempDir()
	ch, err := newCache(t.Context(), CacheConfig{Backend: backendFile, Dir: dir, Compress: true}, false, newLogger(io.Discard, LogInfo))
	if err != nil {
		t.Fatalf("newCache: %v", err)
	}
	defer ch.Close()

	if err := ch.Set(t.Context(), "k", []byte("artifact"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := ch.Get(t.Context(), "k")
	if err != nil || !ok || string(got) != "artifact" {
		t.Errorf("Get = %q, %v, %v", got, ok, err)
	}
}

func TestNewCacheMemory(t *testing.T) {
	tests := []struct {
		name string
		cfg  CacheConfig
	}{
		{"default bound", CacheConfig{Backend: backendMemory}},
		{"explicit bound", CacheConfig{Backend: backendMemory, MaxEntries: 2}},
		{"compressed", CacheConfig{Backend: backendMemory, Compress: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, err := newCache(t.Context(), tt.cfg, false, newLogger(io.Discard, LogInfo))
			if err != nil {
				t.Fatalf("newCache: %v", err)
			}
			defer ch.Close()
			if !tt.cfg.Compress {
				if _, ok := ch.(*cache.MemoryCache); !ok {
					t.Fatalf("newCache() = %T, want *cache.MemoryCache", ch)
				}
			}
			if err := ch.Set(t.Context(), "k", []byte("artifact"), time.Hour); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if got, ok, err := ch.Get(t.Context(), "k"); err != nil || !ok || string(got) != "artifact" {
				t.Errorf("Get = %q, %v, %v", got, ok, err)
			}
		})
	}
}

func TestLoadConfigMemoryBackend(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, "[cache]\nbackend = \"memory\"\nmax_entries = 64\n"))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Cache.Backend != backendMemory || cfg.Cache.MaxEntries != 64 {
		t.Errorf("cache config = %+v", cfg.Cache)
	}
}

func TestNewCacheWarnsWithoutCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("HOME", "")

	var buf bytes.Buffer
	ch, err := newCache(t.Context(), CacheConfig{Backend: backendFile}, false, newLogger(&buf, LogInfo))
	if err != nil {
		t.Fatalf("newCache: %v", err)
	}
	if _, ok := ch.(cache.NullCache); !ok {
		t.Errorf("newCache() = %T, want cache.NullCache", ch)
	}
	if !strings.Contains(buf.String(), "render cache disabled") {
		t.Errorf("no warning logged, got %q", buf.String())
	}
}
