package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"confsched/internal/platform/config"
)

func TestNewDefaults(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg, err := config.New(dir)
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.StateDir != filepath.Join(dir, ".confsched") {
		t.Fatalf("unexpected state dir %q", cfg.StateDir)
	}
	if cfg.Storage != config.StorageFile || cfg.Endpoint != config.DefaultEndpoint {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if _, err := config.New(" "); err == nil {
		t.Fatalf("expected blank data dir to be rejected")
	}
}

func TestLoadLayersFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	stateDir := filepath.Join(dir, ".confsched")
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	yaml := "storage: sqlite\nendpoint: https://example.test\ntimeout: 3s\nlog_level: debug\n"
	if err := os.WriteFile(filepath.Join(stateDir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFSCHED_ENDPOINT", "https://env.example.test")
	t.Setenv("CONFSCHED_REFRESH_INTERVAL", "30s")

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage != config.StorageSQLite {
		t.Fatalf("expected storage from file, got %q", cfg.Storage)
	}
	if cfg.Timeout != 3*time.Second || cfg.LogLevel != "debug" {
		t.Fatalf("expected file values, got timeout=%s level=%s", cfg.Timeout, cfg.LogLevel)
	}
	if cfg.Endpoint != "https://env.example.test" {
		t.Fatalf("expected env to override file, got %q", cfg.Endpoint)
	}
	if cfg.RefreshInterval != 30*time.Second {
		t.Fatalf("expected refresh interval from env, got %s", cfg.RefreshInterval)
	}
	if cfg.UserPrefix != "go" {
		t.Fatalf("expected untouched default user prefix, got %q", cfg.UserPrefix)
	}
}

func TestLoadRejectsUnknownStorage(t *testing.T) {
	t.Setenv("CONFSCHED_STORAGE", "s3")
	if _, err := config.Load(t.TempDir()); err == nil {
		t.Fatalf("expected unknown storage to fail validation")
	}
}
