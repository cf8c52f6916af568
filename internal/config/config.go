// Package config provides configuration management for the annotator.
// Configuration is loaded from environment variables (optionally seeded from a
// .env file) with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	// Default values
	DefaultPort     = 8787
	DefaultHost     = "127.0.0.1"
	DefaultLogLevel = "info"
	DefaultDataDir  = ".heimdex-annotator"

	// Environment variable names
	EnvPort      = "ANNOTATOR_PORT"
	EnvHost      = "ANNOTATOR_HOST"
	EnvLogLevel  = "ANNOTATOR_LOG_LEVEL"
	EnvDataDir   = "ANNOTATOR_DATA_DIR"
	EnvVideosDir = "ANNOTATOR_VIDEOS_DIR"
	EnvDotenv    = "ANNOTATOR_DOTENV"

	// Database filename
	DBFilename = "annotator.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	Host() string
	LogLevel() string
	DataDir() string
	DBPath() string
	VideosDir() string
}

// env mirrors the environment variables read by cleanenv.
type env struct {
	Port      int    `env:"ANNOTATOR_PORT" env-default:"8787"`
	Host      string `env:"ANNOTATOR_HOST" env-default:"127.0.0.1"`
	LogLevel  string `env:"ANNOTATOR_LOG_LEVEL" env-default:"info"`
	DataDir   string `env:"ANNOTATOR_DATA_DIR"`
	VideosDir string `env:"ANNOTATOR_VIDEOS_DIR"`
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port      int
	host      string
	logLevel  string
	dataDir   string
	videosDir string
}

// New creates a new EnvConfig with defaults and environment variable overrides.
// A .env file in the working directory (or the one named by ANNOTATOR_DOTENV)
// is loaded first; variables already set in the process win.
func New() (*EnvConfig, error) {
	dotenv := os.Getenv(EnvDotenv)
	if dotenv == "" {
		dotenv = ".env"
	}
	if _, err := os.Stat(dotenv); err == nil {
		if err := godotenv.Load(dotenv); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", dotenv, err)
		}
	}

	var e env
	if err := cleanenv.ReadEnv(&e); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if e.Port < 1 || e.Port > 65535 {
		return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
	}

	cfg := &EnvConfig{
		port:      e.Port,
		host:      e.Host,
		logLevel:  e.LogLevel,
		dataDir:   e.DataDir,
		videosDir: e.VideosDir,
	}
	if cfg.dataDir == "" {
		cfg.dataDir = defaultDataDir()
	}
	if cfg.videosDir == "" {
		cfg.videosDir = filepath.Join(cfg.dataDir, "videos")
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// Host returns the interface the HTTP server binds to
func (c *EnvConfig) Host() string {
	return c.host
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// VideosDir returns the directory holding <category>/<file> video files
func (c *EnvConfig) VideosDir() string {
	return c.videosDir
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
