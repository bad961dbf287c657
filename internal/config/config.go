// Package config holds all deckrec configuration, loaded in layers:
// struct defaults, then an optional YAML file, then DECKREC_* environment
// variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when no explicit path is given.
var DefaultConfigPaths = []string{
	"deckrec.yaml",
	"deckrec.yml",
}

// EnvPrefix namespaces environment overrides, e.g. DECKREC_SERVER_PORT.
const EnvPrefix = "DECKREC_"

// Config is the full configuration tree.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Archive  ArchiveConfig  `koanf:"archive"`
	Snapshot SnapshotConfig `koanf:"snapshot"`
	Fetch    FetchConfig    `koanf:"fetch"`
	Build    BuildConfig    `koanf:"build"`
	Log      LogConfig      `koanf:"log"`
}

type ServerConfig struct {
	Bind string `koanf:"bind"`
	Port int    `koanf:"port"`
}

type ArchiveConfig struct {
	Path string `koanf:"path"` // empty: resolved via store.DefaultPath()
}

type SnapshotConfig struct {
	Path string `koanf:"path"`
}

type FetchConfig struct {
	BaseURL           string  `koanf:"base_url"`
	UserAgent         string  `koanf:"user_agent"`
	StartDate         string  `koanf:"start_date"`
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

type BuildConfig struct {
	MinCards int `koanf:"min_cards"`
	Workers  int `koanf:"workers"` // 0: one per CPU
	TopItems int `koanf:"top_items"`
	TopPairs int `koanf:"top_pairs"`
}

type LogConfig struct {
	Level string `koanf:"level"` // trace..error
	JSON  bool   `koanf:"json"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 8750,
		},
		Snapshot: SnapshotConfig{
			Path: "snapshot.json",
		},
		Fetch: FetchConfig{
			BaseURL:           "https://marvelcdb.com",
			UserAgent:         "deckrec/1.0",
			StartDate:         "2019-11-01",
			RequestsPerSecond: 1,
		},
		Build: BuildConfig{
			MinCards: 40,
			TopItems: 75,
			TopPairs: 50,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the layered configuration. path may be empty, in which case
// the default locations are probed and a missing file is not an error.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	defaults := Default()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return defaults, fmt.Errorf("load defaults: %w", err)
	}

	explicit := path != ""
	if !explicit {
		for _, p := range DefaultConfigPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if explicit || !os.IsNotExist(err) {
				return defaults, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return defaults, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return defaults, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// envTransform maps DECKREC_SECTION_SOME_KEY to "section.some_key". Only
// the first underscore separates the section; the rest stays literal.
//
//	DECKREC_SERVER_PORT     -> server.port
//	DECKREC_FETCH_BASE_URL  -> fetch.base_url
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, rest, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}
	return section + "." + rest
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
