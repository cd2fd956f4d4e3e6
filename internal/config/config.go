// Package config loads the restfold configuration from restfold.yml and
// the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the restfold configuration
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Server     ServerConfig     `mapstructure:"server"`
	Pagination PaginationConfig `mapstructure:"pagination"`
	Log        LogConfig        `mapstructure:"log"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	// Driver is the database/sql driver name: pgx or sqlite3
	Driver string `mapstructure:"driver"`
	URL    string `mapstructure:"url"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// PaginationConfig bounds list endpoints
type PaginationConfig struct {
	DefaultPageSize int `mapstructure:"default_page_size"`
	MaxPageSize     int `mapstructure:"max_page_size"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `mapstructure:"level"`
	// Development switches to the human-readable console encoder
	Development bool `mapstructure:"development"`
}

// Load loads the configuration from restfold.yml or restfold.yaml,
// overridable through RESTFOLD_-prefixed environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("database.driver", "pgx")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("pagination.default_page_size", 100)
	v.SetDefault("pagination.max_page_size", 500)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetConfigName("restfold")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RESTFOLD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	switch cfg.Database.Driver {
	case "pgx", "sqlite3":
	default:
		return fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level %q", cfg.Log.Level)
	}

	if cfg.Pagination.DefaultPageSize <= 0 {
		return fmt.Errorf("pagination.default_page_size must be positive")
	}
	if cfg.Pagination.MaxPageSize < cfg.Pagination.DefaultPageSize {
		return fmt.Errorf("pagination.max_page_size must be at least the default page size")
	}

	return nil
}
