// Package config provides configuration management for the highscore service
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexbotov/highscore/internal/database"
	"github.com/alexbotov/highscore/internal/domain"
	"github.com/caarlos0/env/v11"
)

const (
	DriverSQLite   = database.DriverSQLite
	DriverPostgres = database.DriverPostgres

	defaultDBFile    = "highscores.sqlite3"
	defaultStaticDir = "static"
)

// Config holds all configuration for the service
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig

	// Team is the single team whose best score is tracked. It is always
	// domain.TeamName and is not read from the environment.
	Team string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `env:"PORT"          envDefault:"5000"`
	StaticDir    string        `env:"STATIC_DIR"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT"  envDefault:"30s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER" envDefault:"sqlite"`
	// Path is the SQLite file location.
	Path string `env:"DB_PATH"`
	// DSN is the PostgreSQL connection string.
	DSN string `env:"DB_DSN"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load loads configuration from environment with defaults.
// Relative defaults resolve against the directory of the running binary.
func Load() (*Config, error) {
	return load(appDir())
}

func load(baseDir string) (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Team = domain.TeamName

	if cfg.Database.Path == "" {
		cfg.Database.Path = filepath.Join(baseDir, defaultDBFile)
	}
	if cfg.Server.StaticDir == "" {
		cfg.Server.StaticDir = filepath.Join(baseDir, defaultStaticDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Port) == "" {
		return errors.New("port is required")
	}
	switch c.Database.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			return errors.New("DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Database.DSN) == "" {
			return errors.New("DB_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Team == "" {
		return errors.New("team is required")
	}
	return nil
}

// DataSource returns the driver name and DSN for database.New
func (c *Config) DataSource() (driver, dsn string) {
	if c.Database.Driver == DriverPostgres {
		return DriverPostgres, c.Database.DSN
	}
	return DriverSQLite, c.Database.Path
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return ":" + c.Server.Port
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func appDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}
