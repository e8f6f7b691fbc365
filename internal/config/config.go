// Package config provides configuration management for the Genesis pipeline
// service. Configuration is loaded from environment variables with sensible
// defaults; a local .env file is honoured when present.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Default values
	DefaultPort     = 8686
	DefaultLogLevel = "info"
	DefaultDataDir  = ".genesis"

	// Environment variable names
	EnvPort     = "GENESIS_PORT"
	EnvLogLevel = "GENESIS_LOG_LEVEL"
	EnvDataDir  = "GENESIS_DATA_DIR"

	// Engine environment variable names
	EnvEnginesPython = "GENESIS_ENGINES_PYTHON"
	EnvEnginesModule = "GENESIS_ENGINES_MODULE"
	EnvFFmpegBinary  = "GENESIS_FFMPEG_BINARY"
	EnvFFprobeBinary = "GENESIS_FFPROBE_BINARY"

	// Database filename
	DBFilename = "genesis.db"

	// Engine defaults
	DefaultEnginesModule            = "genesis_media_pipelines"
	DefaultEnginesTimeoutTranscribe = 1800 // seconds
	DefaultEnginesTimeoutDetect     = 600
	DefaultEnginesTimeoutCaption    = 120
	DefaultFFmpegBinary             = "ffmpeg"
	DefaultFFprobeBinary            = "ffprobe"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	ArtifactRoot() string
	EnginesPython() string
	EnginesModule() string
	EnginesTimeoutTranscribe() time.Duration
	EnginesTimeoutDetect() time.Duration
	EnginesTimeoutCaption() time.Duration
	FFmpegBinary() string
	FFprobeBinary() string
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port     int
	logLevel string
	dataDir  string

	enginesPython string
	enginesModule string
	ffmpegBinary  string
	ffprobeBinary string
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	// Missing .env is fine; env vars win either way.
	_ = godotenv.Load()

	cfg := &EnvConfig{
		port:     DefaultPort,
		logLevel: DefaultLogLevel,
		dataDir:  defaultDataDir(),
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	cfg.enginesPython = os.Getenv(EnvEnginesPython)

	if em := os.Getenv(EnvEnginesModule); em != "" {
		cfg.enginesModule = em
	}

	cfg.ffmpegBinary = os.Getenv(EnvFFmpegBinary)
	cfg.ffprobeBinary = os.Getenv(EnvFFprobeBinary)

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
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

// ArtifactRoot returns the directory that holds produced outputs
// (scene previews, renders, voiceovers, stage JSON).
func (c *EnvConfig) ArtifactRoot() string {
	return filepath.Join(c.dataDir, "artifacts")
}

func (c *EnvConfig) EnginesPython() string {
	return c.enginesPython
}

func (c *EnvConfig) EnginesModule() string {
	if c.enginesModule != "" {
		return c.enginesModule
	}
	return DefaultEnginesModule
}

func (c *EnvConfig) EnginesTimeoutTranscribe() time.Duration {
	return time.Duration(DefaultEnginesTimeoutTranscribe) * time.Second
}

func (c *EnvConfig) EnginesTimeoutDetect() time.Duration {
	return time.Duration(DefaultEnginesTimeoutDetect) * time.Second
}

func (c *EnvConfig) EnginesTimeoutCaption() time.Duration {
	return time.Duration(DefaultEnginesTimeoutCaption) * time.Second
}

func (c *EnvConfig) FFmpegBinary() string {
	if c.ffmpegBinary != "" {
		return c.ffmpegBinary
	}
	return DefaultFFmpegBinary
}

func (c *EnvConfig) FFprobeBinary() string {
	if c.ffprobeBinary != "" {
		return c.ffprobeBinary
	}
	return DefaultFFprobeBinary
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
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
