package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
api:
  base_url: https://api.campusface.test
  timeout: 7s
reconcile:
  rollback: snapshot
refresh:
  schedule: "@every 1m"
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CAMPUSFACE_SERVER_PORT", "9191")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.BaseURL != "https://api.campusface.test" {
		t.Errorf("base_url = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 7*time.Second {
		t.Errorf("timeout = %v", cfg.API.Timeout)
	}
	if cfg.Reconcile.Rollback != "snapshot" {
		t.Errorf("rollback = %q", cfg.Reconcile.Rollback)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("env override failed, port = %d", cfg.Server.Port)
	}
	if cfg.Reliability.ReadAttempts != 1 {
		t.Errorf("read_attempts default = %d, want 1", cfg.Reliability.ReadAttempts)
	}
	if cfg.Refresh.Schedule != "@every 1m" {
		t.Errorf("schedule = %q", cfg.Refresh.Schedule)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{
		API:         APIConfig{BaseURL: "http://x"},
		Reconcile:   ReconcileConfig{Rollback: "merge"},
		Reliability: ReliabilityConfig{ReadAttempts: 1},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("unknown rollback policy must be rejected")
	}

	cfg.Reconcile.Rollback = "per_item"
	cfg.API.BaseURL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty base_url must be rejected")
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := NewLogger(LoggerConfig{Level: "debug", Format: "json"}); err != nil {
		t.Errorf("json logger: %v", err)
	}
	if _, err := NewLogger(LoggerConfig{Level: "loud"}); err == nil {
		t.Error("bad level must fail")
	}
	if _, err := NewLogger(LoggerConfig{Level: "info", Format: "xml"}); err == nil {
		t.Error("bad format must fail")
	}
}

func TestLoadConfig_EnvOnlyKeys(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CAMPUSFACE_AUTH_SESSION_SECRET", "s3cret")
	t.Setenv("CAMPUSFACE_REDIS_ADDR", "localhost:6379")
	t.Setenv("CAMPUSFACE_DATABASE_URL", "postgres://localhost/campusface")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Auth.SessionSecret != "s3cret" || cfg.Redis.Addr != "localhost:6379" || cfg.Database.URL == "" {
		t.Errorf("env-only keys not picked up: %+v %+v %+v", cfg.Auth, cfg.Redis, cfg.Database)
	}
}
