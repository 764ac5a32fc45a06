package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string            `toml:"environment"` // "development" or "production"
	Server      ServerConfig      `toml:"server"`
	Storage     StorageConfig     `toml:"storage"`
	Logging     LoggingConfig     `toml:"logging"`
	Reader      ReaderConfig      `toml:"reader"`
	Speech      SpeechConfig      `toml:"speech"`
	Proxy       ProxyConfig       `toml:"proxy"`
	Maintenance MaintenanceConfig `toml:"maintenance"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// ReaderConfig carries the text-mapping heuristic constants. These are
// pragmatic approximations tuned for typical body text, exposed as
// configuration so unusual documents can be accommodated without a rebuild.
type ReaderConfig struct {
	// LineTolerance is the y-distance (page units) within which two runs are
	// considered part of the same line. Documents with unusually small or
	// large fonts may merge or split lines incorrectly; this is accepted.
	LineTolerance float64 `toml:"line_tolerance"`
	// WidthFactor estimates run width as len(text) * fontSize * WidthFactor
	// when the renderer supplies no glyph metrics.
	WidthFactor float64 `toml:"width_factor"`
	// HeightFactor estimates run height as fontSize * HeightFactor.
	HeightFactor float64 `toml:"height_factor"`
	// AscenderFactor converts a baseline y to the visual top of the text:
	// textTop = baseline + fontSize * AscenderFactor.
	AscenderFactor float64 `toml:"ascender_factor"`
	// PrefixMatchMinLen: spoken tokens longer than this may prefix-match a
	// run word (compensates for hyphenation/truncation artifacts).
	PrefixMatchMinLen int `toml:"prefix_match_min_len"`
	// MinTokenLen: spoken tokens shorter than this are discarded.
	MinTokenLen int `toml:"min_token_len"`
}

// SpeechConfig configures the built-in paced synthesizer
type SpeechConfig struct {
	WordsPerMinute int `toml:"words_per_minute"`
}

// ProxyConfig configures the same-origin PDF proxy
type ProxyConfig struct {
	RequestTimeout time.Duration `toml:"request_timeout"` // outbound fetch timeout
	MaxBodySize    int64         `toml:"max_body_size"`   // bytes; 0 = unlimited
	RatePerSecond  float64       `toml:"rate_per_second"` // outbound fetch rate limit
	CacheTTL       time.Duration `toml:"cache_ttl"`       // proxied PDF cache retention
}

// MaintenanceConfig configures the cron-driven housekeeping jobs
type MaintenanceConfig struct {
	Enabled        bool          `toml:"enabled"`
	Schedule       string        `toml:"schedule"`         // cron format
	SessionMaxIdle time.Duration `toml:"session_max_idle"` // viewer sessions idle longer are swept
}

// DefaultConfig returns the built-in defaults applied before any file or
// environment override.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8090,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/marginalia",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Reader: ReaderConfig{
			LineTolerance:     5.0,
			WidthFactor:       0.5,
			HeightFactor:      1.2,
			AscenderFactor:    0.8,
			PrefixMatchMinLen: 3,
			MinTokenLen:       2,
		},
		Speech: SpeechConfig{
			WordsPerMinute: 160,
		},
		Proxy: ProxyConfig{
			RequestTimeout: 30 * time.Second,
			MaxBodySize:    64 * 1024 * 1024,
			RatePerSecond:  4,
			CacheTTL:       24 * time.Hour,
		},
		Maintenance: MaintenanceConfig{
			Enabled:        true,
			Schedule:       "@every 1h",
			SessionMaxIdle: 2 * time.Hour,
		},
	}
}

// LoadFromFiles loads configuration with precedence:
// defaults -> file1 -> file2 -> ... -> environment. Later files override
// earlier ones. Missing files are an error; no files at all is fine.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies MARGINALIA_* environment variables on top of the
// file-based configuration.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("MARGINALIA_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("MARGINALIA_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("MARGINALIA_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("MARGINALIA_STORAGE_PATH"); v != "" {
		config.Storage.Badger.Path = v
	}
}

// ApplyFlagOverrides applies command-line flag values (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks invariants that would otherwise surface as confusing
// runtime behavior deep inside the engine.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Reader.LineTolerance <= 0 {
		return fmt.Errorf("reader line_tolerance must be positive, got %v", c.Reader.LineTolerance)
	}
	if c.Reader.WidthFactor <= 0 || c.Reader.HeightFactor <= 0 {
		return fmt.Errorf("reader width_factor and height_factor must be positive")
	}
	if c.Reader.MinTokenLen < 1 {
		return fmt.Errorf("reader min_token_len must be at least 1")
	}
	if c.Speech.WordsPerMinute <= 0 {
		return fmt.Errorf("speech words_per_minute must be positive, got %d", c.Speech.WordsPerMinute)
	}
	return nil
}
