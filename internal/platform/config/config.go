package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"

	DefaultEndpoint = "https://api.kotlinconf.com"
	stateDirName    = ".confsched"
	configFileName  = "config.yaml"
)

type Config struct {
	DataDir         string        `yaml:"-"`
	StateDir        string        `yaml:"-"`
	DBPath          string        `yaml:"db_path" env:"CONFSCHED_DB_PATH"`
	Storage         string        `yaml:"storage" env:"CONFSCHED_STORAGE"`
	Endpoint        string        `yaml:"endpoint" env:"CONFSCHED_ENDPOINT"`
	UserPrefix      string        `yaml:"user_prefix" env:"CONFSCHED_USER_PREFIX"`
	Timeout         time.Duration `yaml:"timeout" env:"CONFSCHED_TIMEOUT"`
	LogLevel        string        `yaml:"log_level" env:"CONFSCHED_LOG_LEVEL"`
	LogFormat       string        `yaml:"log_format" env:"CONFSCHED_LOG_FORMAT"`
	MetricsAddr     string        `yaml:"metrics_addr" env:"CONFSCHED_METRICS_ADDR"`
	RefreshInterval time.Duration `yaml:"refresh_interval" env:"CONFSCHED_REFRESH_INTERVAL"`
}

// New returns the defaults for a data directory without reading any file or env.
func New(dataDir string) (Config, error) {
	if strings.TrimSpace(dataDir) == "" {
		return Config{}, fmt.Errorf("data dir is required")
	}
	stateDir := filepath.Join(dataDir, stateDirName)
	return Config{
		DataDir:         dataDir,
		StateDir:        stateDir,
		DBPath:          filepath.Join(stateDir, "confsched.db"),
		Storage:         StorageFile,
		Endpoint:        DefaultEndpoint,
		UserPrefix:      "go",
		Timeout:         15 * time.Second,
		LogLevel:        "info",
		LogFormat:       "text",
		MetricsAddr:     "127.0.0.1:9464",
		RefreshInterval: 5 * time.Minute,
	}, nil
}

// Load layers <dataDir>/.confsched/config.yaml and CONFSCHED_* env vars over the defaults.
func Load(dataDir string) (Config, error) {
	cfg, err := New(dataDir)
	if err != nil {
		return Config{}, err
	}
	raw, err := os.ReadFile(filepath.Join(cfg.StateDir, configFileName))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Storage {
	case StorageFile, StorageSQLite, StorageMemory:
	default:
		return fmt.Errorf("unknown storage %q: want file|sqlite|memory", c.Storage)
	}
	if strings.TrimSpace(c.Endpoint) == "" {
		return fmt.Errorf("endpoint is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("refresh interval must be positive")
	}
	return nil
}
