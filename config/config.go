// Package config loads runtime configuration for the ccond tools.
//
// Values come from three layers, later ones winning: built-in defaults, an
// optional YAML file, and CCOND_* environment variables (optionally seeded
// from a .env file).
//
// Example:
//
//	log:
//	  level: debug
//	  format: json
//	listen: 127.0.0.1:7777
//	store:
//	  write_policy: all
//	  backends:
//	    - name: localfs
//	      settings: {dir: /var/lib/ccond/cas}
//	    - name: redis
//	      id: cache
//	      settings: {addr: localhost:6379}
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultListen  = "127.0.0.1:7777"
	DefaultBackend = "memory"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "CCOND_"
)

type Config struct {
	Log    LogConfig   `yaml:"log"`
	Listen string      `yaml:"listen"`
	Store  StoreConfig `yaml:"store"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" | "json"
}

// StoreConfig describes how to open one or more CAS backends.
//
// WritePolicy values:
//   - "first" (default): write only to the first backend; reads fall back in order
//   - "all": write to all backends and require CID equality
type StoreConfig struct {
	WritePolicy string          `yaml:"write_policy,omitempty"`
	Backends    []BackendConfig `yaml:"backends"`
}

type BackendConfig struct {
	// Name is the registered backend name (e.g. "memory", "localfs", "redis", "grpc").
	Name string `yaml:"name"`
	// ID is an optional alias used in logs and per-backend CID maps.
	// If empty, Name is used.
	ID       string            `yaml:"id,omitempty"`
	Settings map[string]string `yaml:"settings,omitempty"`
}

func (b BackendConfig) id() string {
	if b.ID != "" {
		return b.ID
	}
	return b.Name
}

func Default() Config {
	return Config{
		Log:    LogConfig{Level: "info", Format: "text"},
		Listen: DefaultListen,
		Store: StoreConfig{
			WritePolicy: "first",
			Backends:    []BackendConfig{{Name: DefaultBackend}},
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// empty) and the process environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := cfg.decodeYAML(b); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Parse decodes YAML over the defaults without consulting the environment.
func Parse(b []byte) (Config, error) {
	cfg := Default()
	if err := cfg.decodeYAML(b); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c *Config) decodeYAML(b []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// LoadDotEnv seeds the environment from a .env file. Variables that are
// already set are left alone. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays CCOND_* variables read through lookup.
//
// CCOND_STORE_BACKEND replaces the configured backend list with a single
// backend whose settings come from CCOND_STORE_SETTINGS ("k=v,k=v").
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPrefix + "LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvPrefix + "LOG_FORMAT"); ok {
		c.Log.Format = v
	}
	if v, ok := lookup(EnvPrefix + "LISTEN"); ok {
		c.Listen = v
	}
	if v, ok := lookup(EnvPrefix + "STORE_WRITE_POLICY"); ok {
		c.Store.WritePolicy = v
	}
	name, ok := lookup(EnvPrefix + "STORE_BACKEND")
	if !ok || name == "" {
		return nil
	}
	backend := BackendConfig{Name: name}
	if raw, ok := lookup(EnvPrefix + "STORE_SETTINGS"); ok && raw != "" {
		settings, err := parseSettings(raw)
		if err != nil {
			return err
		}
		backend.Settings = settings
	}
	c.Store.Backends = []BackendConfig{backend}
	return nil
}

func parseSettings(raw string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("config: invalid store setting %q (want key=value)", pair)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}

func (c Config) Validate() error {
	if _, err := c.Log.level(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: invalid log format %q", c.Log.Format)
	}
	return c.Store.Validate()
}

func (s StoreConfig) Validate() error {
	if len(s.Backends) == 0 {
		return errors.New("config: at least one store backend is required")
	}
	seen := make(map[string]struct{}, len(s.Backends))
	for _, b := range s.Backends {
		if b.Name == "" {
			return errors.New("config: store backend name is required")
		}
		id := b.id()
		if _, ok := seen[id]; ok {
			return fmt.Errorf("config: duplicate store backend id %q", id)
		}
		seen[id] = struct{}{}
	}
	switch s.WritePolicy {
	case "", "first", "all":
		return nil
	default:
		return fmt.Errorf("config: invalid write_policy %q", s.WritePolicy)
	}
}

func (l LogConfig) level() (slog.Level, error) {
	var lvl slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return lvl, fmt.Errorf("config: invalid log level %q", l.Level)
	}
	return lvl, nil
}

// NewLogger builds a slog.Logger writing to w at the configured level.
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	lvl, err := l.level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
