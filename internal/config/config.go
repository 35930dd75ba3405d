// Package config loads server configuration from a YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Game     GameConfig     `mapstructure:"game"`
}

// ServerConfig covers the HTTP listener.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig covers the optional PostgreSQL store. An empty URL runs
// the server without durability.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// LoggingConfig selects log level and encoder.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GameConfig sets the gameplay defaults.
type GameConfig struct {
	InviteCodeLength int `mapstructure:"invite_code_length"`
	StartingLife     int `mapstructure:"starting_life"`
	OpeningHandSize  int `mapstructure:"opening_hand_size"`
}

// Load reads the configuration file at path. Environment variables with
// the SPINDOWN_ prefix override file values (SPINDOWN_SERVER_ADDRESS,
// SPINDOWN_DATABASE_URL, ...). A missing file is not an error; defaults
// apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("database.url", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("game.invite_code_length", 8)
	v.SetDefault("game.starting_life", 40)
	v.SetDefault("game.opening_hand_size", 7)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("SPINDOWN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Game.InviteCodeLength < 4 || c.Game.InviteCodeLength > 16 {
		return fmt.Errorf("game.invite_code_length must be between 4 and 16")
	}
	if c.Game.StartingLife <= 0 {
		return fmt.Errorf("game.starting_life must be positive")
	}
	if c.Game.OpeningHandSize < 0 {
		return fmt.Errorf("game.opening_hand_size must not be negative")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
