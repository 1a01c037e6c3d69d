// Package config loads and saves the configuration file, creating it with
// defaults (0600) on first run. Files ending in .toml are TOML, everything
// else is YAML.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	defaultListen    = "127.0.0.1:8080"
	defaultDataDir   = "./data"
	defaultStore     = "json"
	defaultWeekStart = "sunday"
	defaultHorizon   = 12
	defaultLogLevel  = "info"
	defaultKeep      = 14
	defaultTimeout   = 30
)

// BackupConfig controls scheduled snapshots.
type BackupConfig struct {
	// Cron is a five-field schedule (e.g. "0 3 * * *"). Empty disables
	// scheduled backups.
	Cron string `yaml:"cron" toml:"cron" json:"cron"`
	// Dir defaults to <data_dir>/backups.
	Dir string `yaml:"dir" toml:"dir" json:"dir"`
	// Keep is how many backup files are retained; 0 keeps all.
	Keep int `yaml:"keep" toml:"keep" json:"keep"`
}

// SuggestConfig points at the scheduling-suggestion service.
type SuggestConfig struct {
	// Endpoint is the URL receiving the task digest. Empty disables
	// optimization.
	Endpoint       string `yaml:"endpoint" toml:"endpoint" json:"endpoint"`
	APIKey         string `yaml:"api_key" toml:"api_key" json:"-"`
	TimeoutSeconds int    `yaml:"timeout_seconds" toml:"timeout_seconds" json:"timeout_seconds"`
}

// Timeout returns the request timeout as a duration.
func (s SuggestConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" toml:"username" json:"username"`
	Password string `yaml:"password" toml:"password" json:"-"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" toml:"listen" json:"listen"`

	// DataDir holds the task store and, by default, backups and the ICS
	// cache.
	DataDir string `yaml:"data_dir" toml:"data_dir" json:"data_dir"`

	// Store selects the persistence backend: "json", "sqlite" or "memory".
	Store string `yaml:"store" toml:"store" json:"store"`

	// WeekStart is the first column of week and month grids: "sunday"
	// (default) or "monday".
	WeekStart string `yaml:"week_start" toml:"week_start" json:"week_start"`

	// Timezone is the IANA zone used for "today" and for reading floating
	// times in imported calendars. Empty means the host zone.
	Timezone string `yaml:"timezone" toml:"timezone" json:"timezone"`

	// Horizon is the number of occurrences generated for a new recurring
	// task.
	Horizon int `yaml:"horizon" toml:"horizon" json:"horizon"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" toml:"log_level" json:"log_level"`

	Backup  BackupConfig  `yaml:"backup" toml:"backup" json:"backup"`
	Suggest SuggestConfig `yaml:"suggest" toml:"suggest" json:"suggest"`

	// ICSCacheDir stores fetched calendar feeds; defaults to
	// <data_dir>/ics-cache.
	ICSCacheDir string `yaml:"ics_cache_dir" toml:"ics_cache_dir" json:"ics_cache_dir"`

	// BasicAuth, if set with both fields, protects every endpoint except
	// /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" toml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{
		Listen:    defaultListen,
		DataDir:   defaultDataDir,
		Store:     defaultStore,
		WeekStart: defaultWeekStart,
		Horizon:   defaultHorizon,
		LogLevel:  defaultLogLevel,
		Backup: BackupConfig{
			Cron: "0 3 * * *",
			Keep: defaultKeep,
		},
		Suggest: SuggestConfig{TimeoutSeconds: defaultTimeout},
	}
	c.Normalize()
	return c
}

// Normalize fills missing or invalid values so that partially filled
// (older) files still behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}

	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	switch c.Store {
	case "json", "sqlite", "memory":
	default:
		c.Store = defaultStore
	}

	c.WeekStart = strings.ToLower(strings.TrimSpace(c.WeekStart))
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = defaultWeekStart
	}

	if c.Horizon <= 0 {
		c.Horizon = defaultHorizon
	}

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = defaultLogLevel
	}

	if c.Backup.Dir == "" {
		c.Backup.Dir = filepath.Join(c.DataDir, "backups")
	}
	if c.Backup.Keep < 0 {
		c.Backup.Keep = 0
	}
	if c.Suggest.TimeoutSeconds <= 0 {
		c.Suggest.TimeoutSeconds = defaultTimeout
	}
	if c.ICSCacheDir == "" {
		c.ICSCacheDir = filepath.Join(c.DataDir, "ics-cache")
	}
}

// WeekStartDay returns WeekStart as a time.Weekday.
func (c *Config) WeekStartDay() time.Weekday {
	if c.WeekStart == "monday" {
		return time.Monday
	}
	return time.Sunday
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local, err
	}
	return loc, nil
}

// Load reads configuration from the YAML file at path. A missing file is
// created with the defaults and 0600 permissions.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// cfg is still usable; the caller decides.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if isTOML(path) {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	var data []byte
	var err error
	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".taskflow-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}
