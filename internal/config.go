package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/memosync/internal/engine"
	"github.com/starford/memosync/internal/localstore"
	"github.com/starford/memosync/internal/notify"
	"github.com/starford/memosync/internal/orchestrator"
	"github.com/starford/memosync/internal/remote"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Local  LocalConfig       `yaml:"local"`
	Remote RemoteConfig      `yaml:"remote"`
	Sync   SyncConfig        `yaml:"sync"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Local.Validate(); err != nil {
		return fmt.Errorf("local: %w", err)
	}
	if err := c.Remote.Validate(); err != nil {
		return fmt.Errorf("remote: %w", err)
	}
	if err := c.Sync.Validate(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// LogFile switches logging from stderr to a rotated file.
	LogFile       string     `yaml:"log_file"`
	LogMaxSizeMB  int        `yaml:"log_max_size_mb"`
	LogMaxBackups int        `yaml:"log_max_backups"`
	LogMaxAgeDays int        `yaml:"log_max_age_days"`
	HTTP          HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogMaxSizeMB, validation.Min(0)),
		validation.Field(&c.LogMaxBackups, validation.Min(0)),
		validation.Field(&c.LogMaxAgeDays, validation.Min(0)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// LocalConfig selects where notes and settings are kept on this device.
type LocalConfig struct {
	Driver string `yaml:"driver"`
	// Path is the database file for sqlite and the directory for file.
	Path string `yaml:"path"`
}

// Validate validates the local store configuration.
func (c *LocalConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(localstore.DriverSQLite, localstore.DriverFile)),
		validation.Field(&c.Path, validation.Required),
	)
}

// RemoteConfig selects the remote repository driver.
type RemoteConfig struct {
	Driver string `yaml:"driver"`
	Dir    string `yaml:"dir"`
	// Timeout bounds every remote request, so a stalled remote cannot hold shutdown.
	Timeout time.Duration `yaml:"timeout"`
	GitHub  GitHubConfig  `yaml:"github"`
}

// GitHubConfig holds GitHub driver options.
type GitHubConfig struct {
	// BaseURL points at a GitHub Enterprise API; empty means api.github.com.
	BaseURL string `yaml:"base_url"`
}

// Validate validates the remote configuration.
func (c *RemoteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(remote.DriverGitHub, remote.DriverDir, remote.DriverMemory)),
		validation.Field(&c.Dir, validation.When(c.Driver == remote.DriverDir, validation.Required)),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Millisecond)),
	)
}

// SyncConfig tunes the orchestrator and the engine.
type SyncConfig struct {
	Debounce         time.Duration `yaml:"debounce"`
	DisplayInterval  time.Duration `yaml:"display_interval"`
	FetchConcurrency int           `yaml:"fetch_concurrency"`
	// ConnectivityURL is probed before auto-save; empty means always online.
	ConnectivityURL     string        `yaml:"connectivity_url"`
	ConnectivityTimeout time.Duration `yaml:"connectivity_timeout"`
}

// Validate validates the sync configuration.
func (c *SyncConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.DisplayInterval, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.FetchConcurrency, validation.Required, validation.Min(1), validation.Max(64)),
		validation.Field(&c.ConnectivityTimeout, validation.Min(time.Duration(0))),
	)
}

// AuthConfig holds authentication configuration for the local HTTP API.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:      slog.LevelInfo,
			LogMaxSizeMB:  10,
			LogMaxBackups: 3,
			LogMaxAgeDays: 28,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Local: LocalConfig{
			Driver: localstore.DriverSQLite,
			Path:   "./memosync.db",
		},
		Remote: RemoteConfig{
			Driver:  remote.DriverGitHub,
			Timeout: 30 * time.Second,
		},
		Sync: SyncConfig{
			Debounce:            orchestrator.DefaultDebounce,
			DisplayInterval:     notify.DefaultDisplayInterval,
			FetchConcurrency:    engine.DefaultFetchConcurrency,
			ConnectivityTimeout: 2 * time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
