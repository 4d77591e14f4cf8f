package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/adrlens/internal/apperr"
	"github.com/starford/adrlens/internal/reference"
	"github.com/starford/adrlens/internal/template"
	"github.com/starford/adrlens/internal/validate"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Vault   VaultConfig       `yaml:"vault"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Records RecordsConfig     `yaml:"records"`
	Scan    ScanConfig        `yaml:"scan"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Records.Validate(); err != nil {
		return err
	}
	return c.Scan.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
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

// VaultConfig holds the path of the directory tree that holds the records.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
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

// RecordsConfig controls record naming, creation and reference detection.
//
// Prefix is not validated here: an unsafe prefix is replaced
// by the default at matcher compile time and logged. DirectoryName is
// rejected outright because it becomes part of a path.
type RecordsConfig struct {
	Prefix             string   `yaml:"prefix"`
	Enabled            bool     `yaml:"enabled"`
	DirectoryName      string   `yaml:"directory_name"`
	Template           string   `yaml:"template"`
	CustomTemplatePath string   `yaml:"custom_template_path"`
	Roots              []string `yaml:"roots"`
}

// Validate validates the records configuration.
func (c *RecordsConfig) Validate() error {
	if !validate.DirectoryName(c.DirectoryName) {
		return fmt.Errorf("records: directory_name %q: %w", c.DirectoryName, apperr.ErrUnsafeDirectory)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Template, validation.In(templateNames()...)),
		validation.Field(&c.Roots, validation.Each(validation.Required, validation.By(confiningRoot))),
	)
}

// confiningRoot rejects roots the path validator would drop, so that a
// configured root never silently turns into permissive mode.
func confiningRoot(v any) error {
	if s, _ := v.(string); validate.NormalizeRoot(s) == "" {
		return errors.New("must name a directory below the file system root")
	}
	return nil
}

func templateNames() []any {
	names := template.Names()
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}

// Settings returns the part of the configuration the reference engine reads.
func (c *RecordsConfig) Settings() reference.Settings {
	return reference.Settings{
		Prefix:        c.Prefix,
		Enabled:       c.Enabled,
		DirectoryName: c.DirectoryName,
	}
}

// ScanConfig tunes the reference scanner and its cache.
type ScanConfig struct {
	MaxMatches    int           `yaml:"max_matches"`
	EvictInterval time.Duration `yaml:"evict_interval"`
}

// Validate validates the scan configuration.
func (c *ScanConfig) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.MaxMatches, validation.Min(0), validation.Max(100000)),
	)
	if err != nil {
		return err
	}
	if c.EvictInterval < 0 {
		return errors.New("scan: evict_interval must not be negative")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path: ".",
		},
		SQLite: SQLiteConfig{
			Path: "./adrlens.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Records: RecordsConfig{
			Prefix:        validate.DefaultPrefix,
			Enabled:       true,
			DirectoryName: "adr",
			Template:      template.DefaultName,
		},
		Scan: ScanConfig{
			MaxMatches:    reference.DefaultMaxMatches,
			EvictInterval: reference.DefaultEvictInterval,
		},
	}
}
