package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// Session storage modes.
const (
	SessionMemory = "session"
	SessionLocal  = "local"
)

// Config holds application configuration.
type Config struct {
	API      APIConfig      `mapstructure:"api" toml:"api"`
	Session  SessionConfig  `mapstructure:"session" toml:"session"`
	Database DatabaseConfig `mapstructure:"database" toml:"database"`
	Modal    ModalConfig    `mapstructure:"modal" toml:"modal"`
	Log      LogConfig      `mapstructure:"log" toml:"log"`
	UI       UIConfig       `mapstructure:"ui" toml:"ui"`
}

// APIConfig points the console at the HR backend.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url" toml:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" toml:"timeout"`
	// TokenEnv names an env var holding a bearer token, checked before the
	// stored session.
	TokenEnv string `mapstructure:"token_env" toml:"token_env"`
}

// SessionConfig controls where the bearer token lives.
type SessionConfig struct {
	Mode string `mapstructure:"mode" toml:"mode"`
	Path string `mapstructure:"path" toml:"path"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" toml:"path"`
}

// ModalConfig holds dialog transition timings.
type ModalConfig struct {
	SettleDelay     time.Duration `mapstructure:"settle_delay" toml:"settle_delay"`
	SecondaryDelay  time.Duration `mapstructure:"secondary_delay" toml:"secondary_delay"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" toml:"cleanup_interval"`
	AwaitHidden     bool          `mapstructure:"await_hidden" toml:"await_hidden"`
	// Transition is how long the UI animates a dialog in or out.
	Transition time.Duration `mapstructure:"transition" toml:"transition"`
}

type LogConfig struct {
	Path  string `mapstructure:"path" toml:"path"`
	Level string `mapstructure:"level" toml:"level"`
	Dev   bool   `mapstructure:"dev" toml:"dev"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	DateFormat string `mapstructure:"date_format" toml:"date_format"`
	Timezone   string `mapstructure:"timezone" toml:"timezone"`
}

// Default returns the built-in configuration.
func Default() Config {
	home := os.Getenv("HOME")
	return Config{
		API: APIConfig{
			BaseURL:  "http://localhost:8080/api/v1",
			Timeout:  15 * time.Second,
			TokenEnv: "HRDESK_TOKEN",
		},
		Session: SessionConfig{
			Mode: SessionMemory,
			Path: filepath.Join(home, ".config", "hrdesk", "session.json"),
		},
		Database: DatabaseConfig{
			Path: filepath.Join(home, ".local", "share", "hrdesk", "hrdesk.db"),
		},
		Modal: ModalConfig{
			SettleDelay:     200 * time.Millisecond,
			SecondaryDelay:  100 * time.Millisecond,
			CleanupInterval: time.Second,
			Transition:      150 * time.Millisecond,
		},
		Log: LogConfig{Level: "info"},
		UI: UIConfig{
			DateFormat: "2006-01-02",
			Timezone:   "Asia/Kolkata",
		},
	}
}

// Load reads configuration from file and env. Env var overrides use prefix HRDESK_.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetConfigType("toml")

	cfgPath := os.Getenv("HRDESK_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "hrdesk"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("HRDESK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// an explicit HRDESK_CONFIG must exist and parse
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.token_env", d.API.TokenEnv)
	v.SetDefault("session.mode", d.Session.Mode)
	v.SetDefault("session.path", d.Session.Path)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("modal.settle_delay", d.Modal.SettleDelay)
	v.SetDefault("modal.secondary_delay", d.Modal.SecondaryDelay)
	v.SetDefault("modal.cleanup_interval", d.Modal.CleanupInterval)
	v.SetDefault("modal.await_hidden", d.Modal.AwaitHidden)
	v.SetDefault("modal.transition", d.Modal.Transition)
	v.SetDefault("log.path", d.Log.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.dev", d.Log.Dev)
	v.SetDefault("ui.date_format", d.UI.DateFormat)
	v.SetDefault("ui.timezone", d.UI.Timezone)
}

// Validate rejects settings the console cannot start with.
func (c Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: api.base_url %q is not an absolute URL", c.API.BaseURL)
	}
	switch c.Session.Mode {
	case SessionMemory, SessionLocal:
	default:
		return fmt.Errorf("config: session.mode must be %q or %q, got %q", SessionMemory, SessionLocal, c.Session.Mode)
	}
	if c.Modal.SettleDelay < 0 || c.Modal.SecondaryDelay < 0 || c.Modal.CleanupInterval < 0 {
		return fmt.Errorf("config: modal delays must not be negative")
	}
	if _, err := time.LoadLocation(c.UI.Timezone); err != nil {
		return fmt.Errorf("config: ui.timezone: %w", err)
	}
	return nil
}

// Path returns the file Load reads and Save writes.
func Path() string {
	if p := os.Getenv("HRDESK_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "hrdesk", "config.toml")
}

// Save writes cfg to Path, creating the config directory if needed. Unlike
// WriteDefault it overwrites an existing file.
func Save(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("api.base_url", cfg.API.BaseURL)
	v.Set("api.timeout", cfg.API.Timeout.String())
	v.Set("api.token_env", cfg.API.TokenEnv)
	v.Set("session.mode", cfg.Session.Mode)
	v.Set("session.path", cfg.Session.Path)
	v.Set("database.path", cfg.Database.Path)
	v.Set("modal.settle_delay", cfg.Modal.SettleDelay.String())
	v.Set("modal.secondary_delay", cfg.Modal.SecondaryDelay.String())
	v.Set("modal.cleanup_interval", cfg.Modal.CleanupInterval.String())
	v.Set("modal.await_hidden", cfg.Modal.AwaitHidden)
	v.Set("modal.transition", cfg.Modal.Transition.String())
	v.Set("log.path", cfg.Log.Path)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.dev", cfg.Log.Dev)
	v.Set("ui.date_format", cfg.UI.DateFormat)
	v.Set("ui.timezone", cfg.UI.Timezone)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

const defaultHeader = `# hrdesk configuration.
# Every key can be overridden from the environment, e.g. HRDESK_API_BASE_URL
# or HRDESK_MODAL_SETTLE_DELAY=300ms.

`

// WriteDefault writes the built-in configuration to path unless a file is
// already there. It reports whether a file was written.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	var buf bytes.Buffer
	buf.WriteString(defaultHeader)
	if err := toml.NewEncoder(&buf).Encode(Default()); err != nil {
		return false, fmt.Errorf("encode default config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("mkdir config dir: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return false, fmt.Errorf("write default config: %w", err)
	}
	return true, nil
}
