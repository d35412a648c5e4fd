package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeHeader = "header"
	AuthModeJWT    = "jwt"
)

// Search scopes.
const (
	SearchScopeOwner    = "owner"
	SearchScopeReadable = "readable"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Directory DirectoryConfig   `yaml:"directory"`
	Auth      AuthConfig        `yaml:"auth"`
	Search    SearchConfig      `yaml:"search"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Directory.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Search.Validate()
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

// DirectoryConfig points at the users file mirrored into the database.
// Watch re-syncs the file whenever it changes.
type DirectoryConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// Validate validates the directory configuration.
func (c *DirectoryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how the caller is identified:
//   - "header" (default): a trusted proxy sets X-User-Email, suitable for local dev.
//   - "jwt": HS256 bearer tokens; JWT.Secret must be non-empty.
type AuthConfig struct {
	Mode string    `yaml:"mode"`
	JWT  JWTConfig `yaml:"jwt"`
}

// JWTConfig configures bearer token verification.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Issuer string        `yaml:"issuer"`
	TTL    time.Duration `yaml:"ttl"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeHeader
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeHeader, AuthModeJWT)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeJWT && c.JWT.Secret == "" {
		return fmt.Errorf("auth: mode is %q but jwt.secret is empty", AuthModeJWT)
	}
	return validation.ValidateStruct(&c.JWT,
		validation.Field(&c.JWT.TTL, validation.Min(time.Duration(0))),
	)
}

// SearchConfig controls search scope and result size.
type SearchConfig struct {
	Scope        string `yaml:"scope"`
	DefaultLimit int    `yaml:"default_limit"`
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	if c.Scope == "" {
		c.Scope = SearchScopeOwner
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Scope, validation.In(SearchScopeOwner, SearchScopeReadable)),
		validation.Field(&c.DefaultLimit, validation.Min(0)),
	)
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
		SQLite: SQLiteConfig{
			Path: "./notehub.db",
		},
		Directory: DirectoryConfig{
			Path:  "./config/users.yaml",
			Watch: true,
		},
		Auth: AuthConfig{
			Mode: AuthModeHeader,
			JWT: JWTConfig{
				TTL: 24 * time.Hour,
			},
		},
		Search: SearchConfig{
			Scope:        SearchScopeOwner,
			DefaultLimit: 50,
		},
	}
}
