// Package config handles the XDG configuration directory, its files, and
// the settings read from config.toml and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// AppName is the application directory name.
	AppName = "todolist"

	// OAuthClientFile is the OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename.
	TokenFile = "token.json"

	// SessionFile holds the signed-in identity.
	SessionFile = "session.json"

	// SecretFile holds the signing key for local account sessions.
	SecretFile = "session.key"

	// SettingsFile is the optional settings file.
	SettingsFile = "config.toml"

	// EnvPrefix prefixes environment overrides, e.g. TODOLIST_BACKEND.
	EnvPrefix = "TODOLIST"
)

// Backends selectable with the backend setting.
const (
	BackendSQLite    = "sqlite"
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// NoColor disables styled output.
	NoColor bool

	// Settings is populated by Load.
	Settings Settings
}

// Settings are the values read from config.toml and TODOLIST_* variables.
type Settings struct {
	Backend   string            `mapstructure:"backend"`
	Firestore FirestoreSettings `mapstructure:"firestore"`
	SQLite    SQLiteSettings    `mapstructure:"sqlite"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Sync      SyncSettings      `mapstructure:"sync"`
	Log       LogSettings       `mapstructure:"log"`
	Serve     ServeSettings     `mapstructure:"serve"`
}

type FirestoreSettings struct {
	ProjectID string `mapstructure:"project_id"`
}

type SQLiteSettings struct {
	Path string `mapstructure:"path"`
}

type PostgresSettings struct {
	DSN string `mapstructure:"dsn"`
}

// SyncSettings tune the sync coordinator.
type SyncSettings struct {
	CallTimeout    time.Duration `mapstructure:"call_timeout"`
	DeleteAttempts int           `mapstructure:"delete_attempts"`
	BackoffInitial time.Duration `mapstructure:"backoff_initial"`
	BackoffMax     time.Duration `mapstructure:"backoff_max"`
}

type LogSettings struct {
	// File enables logging to a rotated file.
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

type ServeSettings struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/todolist or $HOME/.config/todolist.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{Dir: dir}, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// Load reads config.toml (if present) and environment overrides into c.Settings.
func (c *Config) Load() error {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key needs a default for AutomaticEnv to reach it during Unmarshal.
	v.SetDefault("backend", BackendSQLite)
	v.SetDefault("firestore.project_id", "")
	v.SetDefault("sqlite.path", filepath.Join(c.Dir, "todolist.db"))
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("sync.call_timeout", 10*time.Second)
	v.SetDefault("sync.delete_attempts", 3)
	v.SetDefault("sync.backoff_initial", 100*time.Millisecond)
	v.SetDefault("sync.backoff_max", 2*time.Second)
	v.SetDefault("log.file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("serve.addr", "127.0.0.1:8765")
	v.SetDefault("serve.allowed_origins", []string{})

	if c.HasSettingsFile() {
		v.SetConfigFile(c.SettingsPath())
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("invalid %s: %w", SettingsFile, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return err
	}
	c.Settings = s
	return nil
}

// Validate checks settings that cannot be defaulted.
func (s Settings) Validate() error {
	switch s.Backend {
	case BackendSQLite, BackendPostgres, BackendFirestore:
	default:
		return fmt.Errorf("unknown backend: %q (want sqlite, postgres or firestore)", s.Backend)
	}
	if s.Sync.CallTimeout <= 0 {
		return fmt.Errorf("sync.call_timeout must be positive")
	}
	if s.Sync.DeleteAttempts < 1 {
		return fmt.Errorf("sync.delete_attempts must be at least 1")
	}
	return nil
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// SessionPath returns the path to the session file.
func (c *Config) SessionPath() string {
	return filepath.Join(c.Dir, SessionFile)
}

// SecretPath returns the path to the session signing key.
func (c *Config) SecretPath() string {
	return filepath.Join(c.Dir, SecretFile)
}

// SettingsPath returns the path to config.toml.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	return exists(c.OAuthClientPath())
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	return exists(c.TokenPath())
}

// HasSettingsFile checks if config.toml exists.
func (c *Config) HasSettingsFile() bool {
	return exists(c.SettingsPath())
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
