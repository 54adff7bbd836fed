// Package config loads the service configuration: built-in defaults, then an
// optional YAML file, then environment overrides.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"
	yaml "gopkg.in/yaml.v3"

	"profilecard/internal/api"
	"profilecard/internal/kv"
)

//go:embed config.yaml
var defaultsYAML []byte

const (
	FetchHTTP    = "http"
	FetchBrowser = "browser"
)

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type UpstreamConfig struct {
	Base         string        `yaml:"base"`
	FetchMode    string        `yaml:"fetch_mode"`
	Timeout      time.Duration `yaml:"timeout"`
	WaitSelector string        `yaml:"wait_selector,omitempty"`
	Settle       time.Duration `yaml:"settle,omitempty"`
}

type APIConfig struct {
	api.Config       `yaml:",inline"`
	CollectiblesWait time.Duration `yaml:"collectibles_wait"`
}

type RenderConfig struct {
	Locale   string `yaml:"locale"`
	Timezone string `yaml:"timezone,omitempty"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	API      APIConfig      `yaml:"api"`
	Storage  kv.Config      `yaml:"storage"`
	Render   RenderConfig   `yaml:"render"`
	Logging  LoggingConfig  `yaml:"logging"`
}

func unmarshalConfig(data []byte, cfg *Config) (*Config, error) {
	// Unknown keys are mistakes, so yaml.Unmarshal is not good enough here.
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := unmarshalConfig(defaultsYAML, &Config{})
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadConfiguration reads the file at path (when given) over the defaults,
// applies environment overrides and validates the result.
func LoadConfiguration(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if len(bytes.TrimSpace(data)) > 0 {
			if cfg, err = unmarshalConfig(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to process configuration file: %w", err)
			}
		}
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Server.Addr, "PCARD_ADDR")
	if port := strings.TrimSpace(getenv("PORT")); port != "" {
		c.Server.Addr = ":" + port
	}
	set(&c.Upstream.Base, "PCARD_UPSTREAM")
	set(&c.API.BaseURL, "PCARD_API_BASE")
	set(&c.Upstream.FetchMode, "PCARD_FETCH_MODE")
	set(&c.Storage.Kind, "PCARD_STORAGE")
	set(&c.Storage.Path, "PCARD_STORAGE_PATH")
	set(&c.Storage.RedisURL, "PCARD_REDIS_URL")
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server.addr is empty")
	}
	for name, raw := range map[string]string{"upstream.base": c.Upstream.Base, "api.base_url": c.API.BaseURL} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s: not an absolute http(s) URL: %q", name, raw)
		}
	}
	c.Upstream.FetchMode = strings.ToLower(c.Upstream.FetchMode)
	switch c.Upstream.FetchMode {
	case FetchHTTP, FetchBrowser:
	default:
		return fmt.Errorf("upstream.fetch_mode: unsupported value %q", c.Upstream.FetchMode)
	}
	switch strings.ToLower(c.Storage.Kind) {
	case "", kv.KindMemory:
	case kv.KindFile:
		if strings.TrimSpace(c.Storage.Path) == "" {
			return fmt.Errorf("storage.path is required for file storage")
		}
	case kv.KindRedis:
		if strings.TrimSpace(c.Storage.RedisURL) == "" {
			return fmt.Errorf("storage.redis_url is required for redis storage")
		}
	default:
		return fmt.Errorf("storage.kind: unsupported value %q", c.Storage.Kind)
	}
	if _, err := c.Render.Tag(); err != nil {
		return err
	}
	if _, err := c.Render.Location(); err != nil {
		return err
	}
	return c.Logging.validate()
}

// Tag parses the configured locale.
func (r RenderConfig) Tag() (language.Tag, error) {
	if strings.TrimSpace(r.Locale) == "" {
		return language.AmericanEnglish, nil
	}
	tag, err := language.Parse(r.Locale)
	if err != nil {
		return language.Und, fmt.Errorf("render.locale: %w", err)
	}
	return tag, nil
}

// Location loads the configured zone, time.Local when unset.
func (r RenderConfig) Location() (*time.Location, error) {
	if strings.TrimSpace(r.Timezone) == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("render.timezone: %w", err)
	}
	return loc, nil
}

// Dump renders cfg as YAML.
func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %w", err)
	}
	return data, nil
}
