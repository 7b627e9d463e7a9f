package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "slacktui.yaml")
	data := []byte(`
workspace: acme
auth:
  user_token: xoxp-file
  app_token: xapp-file
sync:
  interval_seconds: 30
retention:
  enabled: true
  cron: "0 3 * * *"
  days: 90
`)
	if err := os.WriteFile(p, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("SLACKTUI_USER_TOKEN", "xoxp-env")
	t.Setenv("SLACKTUI_SYNC_INTERVAL", "45")

	cfg, envUsed, err := LoadEffective(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !envUsed {
		t.Fatal("env overrides not detected")
	}
	if cfg.Workspace != "acme" {
		t.Fatalf("workspace = %q", cfg.Workspace)
	}
	if cfg.Auth.UserToken != "xoxp-env" {
		t.Fatalf("env must win over file: %q", cfg.Auth.UserToken)
	}
	if cfg.Auth.AppToken != "xapp-file" {
		t.Fatalf("file value lost: %q", cfg.Auth.AppToken)
	}
	if cfg.SyncInterval() != 45*time.Second {
		t.Fatalf("interval = %v", cfg.SyncInterval())
	}
	if !cfg.Retention.Enabled || cfg.Retention.Days != 90 {
		t.Fatalf("retention: %+v", cfg.Retention)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadEffectiveMissingFileUsesEnv(t *testing.T) {
	t.Setenv("SLACKTUI_USER_TOKEN", "xoxp-env")
	t.Setenv("SLACKTUI_APP_TOKEN", "xapp-env")
	cfg, envUsed, err := LoadEffective(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !envUsed {
		t.Fatal("expected env usage")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateRequiresTokens(t *testing.T) {
	var cfg Config
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error without tokens")
	}
	cfg.Auth.UserToken = "xoxp"
	cfg.Auth.AppToken = "xapp"
	cfg.Retention.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for retention without days")
	}
}

func TestSyncIntervalDefault(t *testing.T) {
	var cfg Config
	if cfg.SyncInterval() != 15*time.Second {
		t.Fatalf("default interval = %v", cfg.SyncInterval())
	}
}

func TestEffectiveDBPath(t *testing.T) {
	var cfg Config
	cfg.Workspace = "acme"
	if p := cfg.EffectiveDBPath(); !strings.HasSuffix(p, filepath.Join("slacktui", "acme.db")) {
		t.Fatalf("default path = %q", p)
	}
	cfg.Storage.DBPath = "/tmp/x.db"
	if p := cfg.EffectiveDBPath(); p != "/tmp/x.db" {
		t.Fatalf("explicit path = %q", p)
	}
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("SLACKTUI_CONFIG", "/etc/slacktui.yaml")
	if p := ResolveConfigPath("./flag.yaml", true); p != "./flag.yaml" {
		t.Fatalf("flag must win: %q", p)
	}
	if p := ResolveConfigPath("./default.yaml", false); p != "/etc/slacktui.yaml" {
		t.Fatalf("env must win over default: %q", p)
	}
}
