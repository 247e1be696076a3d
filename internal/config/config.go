// Package config loads the scenelink server configuration from a TOML file
// with environment overrides for deployment settings.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults.
const (
	DefaultListen            = ":8108"
	DefaultName              = "scenelink-server"
	DefaultReadTimeout       = 60 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultHeartbeatInterval = 20 * time.Second
	DefaultRequestQueue      = 64
	DefaultLogLevel          = "info"
)

// Duration wraps time.Duration so TOML values read as "30s" or "2m".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Config is the full server configuration.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Screenshot ScreenshotConfig `toml:"screenshot"`
	Log        LogConfig        `toml:"log"`
}

// ServerConfig holds the listener and session tuning.
type ServerConfig struct {
	// Listen is the HTTP bind address.
	Listen string `toml:"listen"`

	// Name answers the client-name query.
	Name string `toml:"name"`

	ReadTimeout       Duration `toml:"read_timeout"`
	WriteTimeout      Duration `toml:"write_timeout"`
	HeartbeatInterval Duration `toml:"heartbeat_interval"`

	// RequestQueue is the resolver inbox depth.
	RequestQueue int `toml:"request_queue"`
}

// ScreenshotConfig selects where captured screenshots are persisted. When
// S3Bucket is set the S3 store wins; otherwise Dir, when set, selects the
// local directory store.
type ScreenshotConfig struct {
	Dir      string `toml:"dir"`
	S3Bucket string `toml:"s3_bucket"`
	S3Prefix string `toml:"s3_prefix"`
}

// LogConfig controls structured log output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`

	// JSON selects JSON output instead of text.
	JSON bool `toml:"json"`
}

// Default returns a usable configuration without a file.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Listen:            DefaultListen,
			Name:              DefaultName,
			ReadTimeout:       Duration{DefaultReadTimeout},
			WriteTimeout:      Duration{DefaultWriteTimeout},
			HeartbeatInterval: Duration{DefaultHeartbeatInterval},
			RequestQueue:      DefaultRequestQueue,
		},
		Log: LogConfig{Level: DefaultLogLevel},
	}
}

// Load reads a TOML file over the defaults, applies environment overrides,
// and validates. An empty path loads defaults and environment only.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides deployment-facing fields from SCENELINK_* variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("SCENELINK_LISTEN"); v != "" {
		c.Server.Listen = v
	}
	if v := os.Getenv("SCENELINK_NAME"); v != "" {
		c.Server.Name = v
	}
	if v := os.Getenv("SCENELINK_SCREENSHOT_DIR"); v != "" {
		c.Screenshot.Dir = v
	}
	if v := os.Getenv("SCENELINK_S3_BUCKET"); v != "" {
		c.Screenshot.S3Bucket = v
	}
	if v := os.Getenv("SCENELINK_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Listen) == "" {
		return fmt.Errorf("config missing server.listen")
	}
	if strings.TrimSpace(c.Server.Name) == "" {
		return fmt.Errorf("config missing server.name")
	}
	if c.Server.ReadTimeout.Duration <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout.Duration <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}
	if c.Server.HeartbeatInterval.Duration >= c.Server.ReadTimeout.Duration {
		return fmt.Errorf("server.heartbeat_interval must be shorter than server.read_timeout")
	}
	if c.Server.RequestQueue <= 0 {
		return fmt.Errorf("server.request_queue must be positive")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}
