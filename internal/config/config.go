// Package config loads runtime settings from an optional YAML file and
// TRUSTCHECK_* environment variables. Precedence: defaults, then the file,
// then the environment. CLI flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates application configuration values.
type Config struct {
	// DataDir holds the archive, daemon log, PID and port files.
	DataDir string        `yaml:"data_dir"`
	Lookup  LookupConfig  `yaml:"lookup"`
	Lexicon LexiconConfig `yaml:"lexicon"`
	Archive ArchiveConfig `yaml:"archive"`
	HTTP    HTTPConfig    `yaml:"http"`
	Logging LoggingConfig `yaml:"logging"`
}

// LookupConfig tunes a check.
type LookupConfig struct {
	Delay             time.Duration `yaml:"delay"`
	Skin              string        `yaml:"skin"` // classic|detailed
	AgeThresholdYears float64       `yaml:"age_threshold_years"`
}

// LexiconConfig selects the keyword lexicon. An empty Path uses the
// embedded one; a set Path is watched and hot-reloaded when Watch is on.
type LexiconConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// ArchiveConfig locates the bbolt backup archive. Empty means
// <data_dir>/archive.db.
type ArchiveConfig struct {
	Path string `yaml:"path"`
}

// HTTPConfig governs the local HTTP API.
type HTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	// Port 0 picks a port derived from the data dir.
	Port            int     `yaml:"port"`
	RateRPS         float64 `yaml:"rate_rps"`
	RateBurst       int     `yaml:"rate_burst"`
	ImportPerMinute float64 `yaml:"import_per_minute"`
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"` // text|json
	IncludeCaller bool   `yaml:"include_caller"`
}

const (
	defaultDelay           = 800 * time.Millisecond
	defaultSkin            = "detailed"
	defaultAgeThreshold    = 2
	defaultRateRPS         = 10
	defaultRateBurst       = 20
	defaultImportPerMinute = 6
	defaultLoggingLevel    = "info"
	defaultLoggingFormat   = "text"

	// EnvFile names the optional YAML config file.
	EnvFile = "TRUSTCHECK_CONFIG"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir: defaultDataDir(),
		Lookup: LookupConfig{
			Delay:             defaultDelay,
			Skin:              defaultSkin,
			AgeThresholdYears: defaultAgeThreshold,
		},
		Lexicon: LexiconConfig{Watch: true},
		HTTP: HTTPConfig{
			Enabled:         true,
			RateRPS:         defaultRateRPS,
			RateBurst:       defaultRateBurst,
			ImportPerMinute: defaultImportPerMinute,
		},
		Logging: LoggingConfig{
			Level:  defaultLoggingLevel,
			Format: defaultLoggingFormat,
		},
	}
}

// Load reads the file named by TRUSTCHECK_CONFIG (if set) and then the
// environment, applying defaults.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(EnvFile); path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// mergeFile overlays the YAML file onto cfg. Keys absent from the file
// keep their current values.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.DataDir = valueOrDefault("TRUSTCHECK_DATA_DIR", cfg.DataDir)

	if v := os.Getenv("TRUSTCHECK_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TRUSTCHECK_DELAY: %w", err)
		}
		cfg.Lookup.Delay = d
	}
	cfg.Lookup.Skin = valueOrDefault("TRUSTCHECK_SKIN", cfg.Lookup.Skin)
	cfg.Lookup.AgeThresholdYears = parseFloatWithDefault("TRUSTCHECK_AGE_THRESHOLD", cfg.Lookup.AgeThresholdYears)

	cfg.Lexicon.Path = valueOrDefault("TRUSTCHECK_LEXICON", cfg.Lexicon.Path)
	cfg.Lexicon.Watch = parseBoolWithDefault("TRUSTCHECK_LEXICON_WATCH", cfg.Lexicon.Watch)

	cfg.Archive.Path = valueOrDefault("TRUSTCHECK_DB", cfg.Archive.Path)

	cfg.HTTP.Enabled = parseBoolWithDefault("TRUSTCHECK_HTTP_ENABLED", cfg.HTTP.Enabled)
	port, err := parsePort("TRUSTCHECK_HTTP_PORT", cfg.HTTP.Port)
	if err != nil {
		return err
	}
	cfg.HTTP.Port = port
	cfg.HTTP.RateRPS = parseFloatWithDefault("TRUSTCHECK_RATE_RPS", cfg.HTTP.RateRPS)
	cfg.HTTP.RateBurst = parseIntWithDefault("TRUSTCHECK_RATE_BURST", cfg.HTTP.RateBurst)

	cfg.Logging.Level = valueOrDefault("TRUSTCHECK_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = valueOrDefault("TRUSTCHECK_LOG_FORMAT", cfg.Logging.Format)
	cfg.Logging.IncludeCaller = parseBoolWithDefault("TRUSTCHECK_LOG_INCLUDE_CALLER", cfg.Logging.IncludeCaller)
	return nil
}

// Validate rejects values no component can run with.
func (c Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	if c.Lookup.Delay < 0 {
		errs = append(errs, fmt.Errorf("lookup.delay must not be negative, got %s", c.Lookup.Delay))
	}
	switch strings.ToLower(c.Lookup.Skin) {
	case "classic", "detailed":
	default:
		errs = append(errs, fmt.Errorf("lookup.skin must be classic or detailed, got %q", c.Lookup.Skin))
	}
	if c.Lookup.AgeThresholdYears <= 0 {
		errs = append(errs, fmt.Errorf("lookup.age_threshold_years must be positive, got %v", c.Lookup.AgeThresholdYears))
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port %d is out of range", c.HTTP.Port))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// ArchivePath returns the bbolt archive file, defaulting under DataDir.
func (c Config) ArchivePath() string {
	if c.Archive.Path != "" {
		return c.Archive.Path
	}
	return filepath.Join(c.DataDir, "archive.db")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".trustcheck"
	}
	return filepath.Join(home, ".trustcheck")
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseFloatWithDefault(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil {
			return val
		}
	}
	return fallback
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port < 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
