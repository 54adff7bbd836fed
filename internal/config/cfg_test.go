package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/language"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profilecard.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.API.BaseURL != "https://www.pekora.zip" || cfg.API.Timeout != 15*time.Second {
		t.Fatalf("api = %+v", cfg.API)
	}
	if cfg.API.CollectiblesWait != 2*time.Second {
		t.Fatalf("collectibles wait = %v", cfg.API.CollectiblesWait)
	}
	if cfg.Upstream.FetchMode != FetchHTTP || cfg.Storage.Kind != "file" {
		t.Fatalf("unexpected defaults %+v %+v", cfg.Upstream, cfg.Storage)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
}

func TestLoadConfigurationOverlaysFile(t *testing.T) {
	path := writeFile(t, `
server:
  addr: "127.0.0.1:9000"
storage:
  kind: memory
render:
  locale: de-DE
  timezone: UTC
`)
	cfg, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" || cfg.Storage.Kind != "memory" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Upstream.Base != "https://www.pekora.zip" {
		t.Fatalf("untouched default lost: %q", cfg.Upstream.Base)
	}
	tag, _ := cfg.Render.Tag()
	if tag != language.MustParse("de-DE") {
		t.Fatalf("tag = %v", tag)
	}
	loc, _ := cfg.Render.Location()
	if loc != time.UTC {
		t.Fatalf("location = %v", loc)
	}
}

func TestLoadConfigurationRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown key", "server:\n  bogus: 1\n", "decode"},
		{"fetch mode", "upstream:\n  fetch_mode: carrier-pigeon\n", "fetch_mode"},
		{"storage kind", "storage:\n  kind: floppy\n", "storage.kind"},
		{"redis without url", "storage:\n  kind: redis\n", "redis_url"},
		{"relative api", "api:\n  base_url: /api\n", "api.base_url"},
		{"timezone", "render:\n  timezone: Mars/Olympus\n", "render.timezone"},
		{"locale", "render:\n  locale: \"!!\"\n", "render.locale"},
		{"log level", "logging:\n  console:\n    level: loud\n", "console.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfiguration(writeFile(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	env := map[string]string{
		"PCARD_UPSTREAM":     "http://localhost:1",
		"PCARD_API_BASE":     "http://localhost:2",
		"PCARD_FETCH_MODE":   "browser",
		"PCARD_STORAGE":      "redis",
		"PCARD_REDIS_URL":    "redis://localhost:6379/0",
		"PCARD_STORAGE_PATH": "/tmp/x.json",
		"PORT":               "7000",
	}
	cfg := Default()
	cfg.applyEnv(func(k string) string { return env[k] })
	if cfg.Server.Addr != ":7000" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Upstream.Base != "http://localhost:1" || cfg.API.BaseURL != "http://localhost:2" {
		t.Fatalf("bases = %q %q", cfg.Upstream.Base, cfg.API.BaseURL)
	}
	if cfg.Upstream.FetchMode != FetchBrowser || cfg.Storage.Kind != "redis" || cfg.Storage.Path != "/tmp/x.json" {
		t.Fatalf("unexpected %+v %+v", cfg.Upstream, cfg.Storage)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadConfigurationMissingFile(t *testing.T) {
	if _, err := LoadConfiguration(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestDumpRoundTrip(t *testing.T) {
	data, err := Dump(Default())
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	cfg, err := unmarshalConfig(data, &Config{})
	if err != nil {
		t.Fatalf("dumped config does not load: %v", err)
	}
	if cfg.API.CollectiblesWait != 2*time.Second {
		t.Fatalf("collectibles wait = %v", cfg.API.CollectiblesWait)
	}
}

func TestPrepareFileLogger(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "logs", "pc.log")
	conf := LoggingConfig{
		ConsoleLogger: ConsoleLoggerConfig{Level: LevelNone},
		FileLogger:    FileLoggerConfig{Level: LevelDebug, Destination: dest, MaxSizeMB: 1},
	}
	log, closeLog, err := conf.Prepare()
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	log.Debug("hello from test")
	_ = log.Sync()
	if err := closeLog(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Fatalf("log line missing: %s", data)
	}
}
