// Package config loads the client configuration from ~/.hogwarts/config.yaml
// with environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/naveenspark/hogwarts/internal/store"
)

// Defaults.
const (
	DefaultAPIURL           = "http://localhost:3000/api"
	DefaultWebURL           = "http://localhost:5173"
	DefaultPageSize         = 10
	DefaultMaxBooksPerOrder = 50
	DefaultTimeoutSeconds   = 10
	DefaultLogLevel         = "info"
)

// Config is the client configuration.
type Config struct {
	APIURL           string      `yaml:"apiURL"`
	WebURL           string      `yaml:"webURL"`
	TimeoutSeconds   int         `yaml:"timeoutSeconds"`
	DataDir          string      `yaml:"dataDir"`
	LogLevel         string      `yaml:"logLevel"`
	LogFile          string      `yaml:"logFile"`
	PageSize         int         `yaml:"pageSize"`
	MaxBooksPerOrder int         `yaml:"maxBooksPerOrder"`
	Store            StoreConfig `yaml:"store"`
}

// StoreConfig selects the persistent store backend.
type StoreConfig struct {
	Backend       string `yaml:"backend"`
	SQLitePath    string `yaml:"sqlitePath"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
	Namespace     string `yaml:"namespace"`
}

// Timeout is the per-request API timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// StoreOptions converts the store section for store.Open.
func (c Config) StoreOptions() store.Options {
	return store.Options{
		Backend:       c.Store.Backend,
		Dir:           c.DataDir,
		SQLitePath:    c.Store.SQLitePath,
		RedisAddr:     c.Store.RedisAddr,
		RedisPassword: c.Store.RedisPassword,
		RedisDB:       c.Store.RedisDB,
		Namespace:     c.Store.Namespace,
	}
}

// Dir returns ~/.hogwarts.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".hogwarts"), nil
}

// DefaultPath returns the config file location: $HOGWARTS_CONFIG, else
// ~/.hogwarts/config.yaml.
func DefaultPath() (string, error) {
	if p := os.Getenv("HOGWARTS_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads config from path (DefaultPath when empty). A missing file is not
// an error; defaults apply.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	if err := cfg.fillDefaults(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("HOGWARTS_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("HOGWARTS_WEB_URL"); v != "" {
		cfg.WebURL = v
	}
	if v := os.Getenv("HOGWARTS_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("HOGWARTS_STORE"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("HOGWARTS_REDIS_ADDR"); v != "" {
		cfg.Store.RedisAddr = v
	}
	if v := os.Getenv("HOGWARTS_REDIS_PASSWORD"); v != "" {
		cfg.Store.RedisPassword = v
	}
	if v := os.Getenv("HOGWARTS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("HOGWARTS_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TimeoutSeconds = n
		}
	}
}

func (c *Config) fillDefaults() error {
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.WebURL == "" {
		c.WebURL = DefaultWebURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.MaxBooksPerOrder == 0 {
		c.MaxBooksPerOrder = DefaultMaxBooksPerOrder
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Store.Backend == "" {
		c.Store.Backend = store.BackendFile
	}
	if c.DataDir == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		c.DataDir = dir
	}
	if c.LogFile == "" {
		c.LogFile = filepath.Join(c.DataDir, "hogwarts.log")
	}
	return nil
}

// Validate checks the fields that would otherwise fail late.
func (c Config) Validate() error {
	for name, raw := range map[string]string{"apiURL": c.APIURL, "webURL": c.WebURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config: %s %q is not an absolute URL", name, raw)
		}
	}
	switch strings.ToLower(c.Store.Backend) {
	case store.BackendFile, store.BackendSQLite, store.BackendMemory:
	case store.BackendRedis:
		if c.Store.RedisAddr == "" {
			return errors.New("config: store.redisAddr is required for the redis backend")
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	return nil
}
