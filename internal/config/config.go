// Package config resolves planloom settings from defaults, an optional YAML
// file and PLANLOOM_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath = "PLANLOOM_CONFIG"
	homeDir       = ".planloom"
)

// S3Audit configures the optional S3 archive of audit entries. An empty
// bucket disables it.
type S3Audit struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	Prefix    string `yaml:"prefix"`
	PathStyle bool   `yaml:"path_style"`
	BatchSize int    `yaml:"batch_size"`
}

type Audit struct {
	// Log mirrors every audit entry to the structured logger.
	Log       bool    `yaml:"log"`
	QueueSize int     `yaml:"queue_size"`
	S3        S3Audit `yaml:"s3"`
}

type Config struct {
	DBPath          string        `yaml:"db"`
	Actor           string        `yaml:"actor"`
	LogLevel        string        `yaml:"log_level"`
	LockTTL         time.Duration `yaml:"lock_ttl"`
	CascadePushOnly bool          `yaml:"cascade_push_only"`
	ChainCacheSize  int           `yaml:"chain_cache_size"`
	MetricsTextfile string        `yaml:"metrics_textfile"`
	Audit           Audit         `yaml:"audit"`
}

// Default returns the built-in settings. The database lives under
// ~/.planloom unless the home directory cannot be resolved.
func Default() Config {
	dbPath := filepath.Join(homeDir, "planloom.db")
	if home, err := os.UserHomeDir(); err == nil {
		dbPath = filepath.Join(home, homeDir, "planloom.db")
	}
	actor := os.Getenv("USER")
	if actor == "" {
		actor = "planloom"
	}
	return Config{
		DBPath:         dbPath,
		Actor:          actor,
		LogLevel:       "warn",
		LockTTL:        30 * time.Second,
		ChainCacheSize: 256,
		Audit: Audit{
			QueueSize: 256,
		},
	}
}

// Load applies the config file and the environment over Default and
// validates the result.
func Load() (Config, error) {
	cfg := Default()

	path, explicit := os.Getenv(EnvConfigPath), true
	if path == "" {
		explicit = false
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, homeDir, "config.yaml")
		}
	}
	if path != "" {
		if err := cfg.loadFile(path, explicit); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadFile merges path into cfg. A missing file is only an error when
// the path was given explicitly.
func (c *Config) loadFile(path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PLANLOOM_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("PLANLOOM_ACTOR"); v != "" {
		c.Actor = v
	}
	if v := os.Getenv("PLANLOOM_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("PLANLOOM_LOCK_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PLANLOOM_LOCK_TTL: %w", err)
		}
		c.LockTTL = d
	}
	if v := os.Getenv("PLANLOOM_CASCADE_PUSH_ONLY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PLANLOOM_CASCADE_PUSH_ONLY: %w", err)
		}
		c.CascadePushOnly = b
	}
	if v := os.Getenv("PLANLOOM_CHAIN_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PLANLOOM_CHAIN_CACHE_SIZE: %w", err)
		}
		c.ChainCacheSize = n
	}
	if v := os.Getenv("PLANLOOM_AUDIT_LOG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PLANLOOM_AUDIT_LOG: %w", err)
		}
		c.Audit.Log = b
	}
	if v := os.Getenv("PLANLOOM_AUDIT_S3_BUCKET"); v != "" {
		c.Audit.S3.Bucket = v
	}
	if v := os.Getenv("PLANLOOM_AUDIT_S3_REGION"); v != "" {
		c.Audit.S3.Region = v
	}
	if v := os.Getenv("PLANLOOM_AUDIT_S3_ENDPOINT"); v != "" {
		c.Audit.S3.Endpoint = v
	}
	if v := os.Getenv("PLANLOOM_AUDIT_S3_PREFIX"); v != "" {
		c.Audit.S3.Prefix = v
	}
	if v := os.Getenv("PLANLOOM_AUDIT_S3_PATH_STYLE"); v != "" {
		c.Audit.S3.PathStyle = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("PLANLOOM_METRICS_TEXTFILE"); v != "" {
		c.MetricsTextfile = v
	}
	return nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("config: db path is required")
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("config: lock_ttl must be positive, got %s", c.LockTTL)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog.Level.
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	return lvl, nil
}
