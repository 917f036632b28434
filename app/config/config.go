package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. BLOGFRONT_DATABASE_DSN.
const EnvPrefix = "BLOGFRONT"

// Config is the runtime configuration of the blog server
type Config struct {
	Addr      string         `mapstructure:"addr" validate:"required"`
	Debug     bool           `mapstructure:"debug"`
	ViewsPath string         `mapstructure:"views_path" validate:"required"`
	StaticDir string         `mapstructure:"static_dir"`
	MediaURL  string         `mapstructure:"media_url"`
	Database  DatabaseConfig `mapstructure:"database"`
	Pages     PagesConfig    `mapstructure:"pages"`
	Server    ServerConfig   `mapstructure:"server"`
}

// DatabaseConfig selects the store backend. For badger the DSN is a
// directory; an empty badger DSN opens an in-memory database.
type DatabaseConfig struct {
	Driver      string `mapstructure:"driver" validate:"oneof=postgres sqlite badger"`
	DSN         string `mapstructure:"dsn" validate:"required_unless=Driver badger"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// PagesConfig bounds the listings on each page
type PagesConfig struct {
	Popular  int `mapstructure:"popular_limit" validate:"gte=0"`
	Recent   int `mapstructure:"recent_limit" validate:"gte=0"`
	TagPosts int `mapstructure:"tag_posts_limit" validate:"gte=0"`
}

// ServerConfig holds HTTP server timeouts
type ServerConfig struct {
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

var defaults = map[string]any{
	"addr":                    ":8080",
	"debug":                   false,
	"views_path":              "app/views",
	"static_dir":              "static",
	"media_url":               "/media/",
	"database.driver":         "badger",
	"database.dsn":            "data/badger",
	"database.auto_migrate":   false,
	"pages.popular_limit":     5,
	"pages.recent_limit":      5,
	"pages.tag_posts_limit":   20,
	"server.read_timeout":     "10s",
	"server.write_timeout":    "10s",
	"server.shutdown_timeout": "15s",
}

// Load reads configuration from defaults, the optional file at path and
// BLOGFRONT_* environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found", path)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field constraint
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
