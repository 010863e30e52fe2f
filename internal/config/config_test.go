package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.OpsAddr != ":9102" {
		t.Fatalf("unexpected ops addr %q", cfg.Server.OpsAddr)
	}
	if cfg.Defaults.AppSSHAccess {
		t.Fatalf("default ssh access should be false")
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "control_plane.yaml")
	body := []byte("defaults:\n  app_ssh_access: true\nlogging:\n  level: debug\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Defaults.AppSSHAccess {
		t.Fatalf("yaml default_app_ssh_access not applied")
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("env override lost, level = %q", cfg.Logging.Level)
	}
}
