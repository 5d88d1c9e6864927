package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/memosync/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token"}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "token is empty") {
		t.Fatalf("err = %v", err)
	}
	cfg.Token = "secret"
	if err := cfg.Validate(); err != nil || !cfg.AuthEnabled() {
		t.Fatalf("token mode with token: err=%v enabled=%v", err, cfg.AuthEnabled())
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults: %v", err)
	}
}

func TestConfigRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"local driver":      func(c *Config) { c.Local.Driver = "redis" },
		"local path":        func(c *Config) { c.Local.Path = "" },
		"remote driver":     func(c *Config) { c.Remote.Driver = "s3" },
		"dir without root":  func(c *Config) { c.Remote.Driver = "dir" },
		"remote timeout":    func(c *Config) { c.Remote.Timeout = 0 },
		"concurrency":       func(c *Config) { c.Sync.FetchConcurrency = 65 },
		"no debounce":       func(c *Config) { c.Sync.Debounce = 0 },
		"port":              func(c *Config) { c.App.HTTP.Port = 70000 },
		"negative rotation": func(c *Config) { c.App.LogMaxBackups = -1 },
		"auth mode":         func(c *Config) { c.Auth.Mode = "magic" },
	}
	for name, mutate := range cases {
		cfg := NewDefaultConfig()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("MEMOSYNC_TEST_DIR", "/srv/notes")
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
app:
  log_level: debug
  http:
    port: 9090
local:
  driver: file
  path: ${MEMOSYNC_TEST_DIR}
remote:
  driver: dir
  dir: /srv/remote
sync:
  debounce: 500ms
  fetch_concurrency: 4
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.LoadOrDefault(path, cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.LogLevel != slog.LevelDebug || cfg.App.HTTP.Port != 9090 {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Local.Driver != "file" || cfg.Local.Path != "/srv/notes" {
		t.Errorf("local = %+v", cfg.Local)
	}
	if cfg.Sync.Debounce != 500*time.Millisecond || cfg.Sync.FetchConcurrency != 4 {
		t.Errorf("sync = %+v", cfg.Sync)
	}
	if cfg.Sync.DisplayInterval != 3*time.Second {
		t.Errorf("display interval default lost: %v", cfg.Sync.DisplayInterval)
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := pkgconfig.LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"), cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Local.Driver != "sqlite" || cfg.App.HTTP.Port != 8080 {
		t.Errorf("cfg = %+v", cfg)
	}
}
