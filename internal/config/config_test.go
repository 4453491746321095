package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.WorktreesDir != ".worktrees" {
		t.Errorf("WorktreesDir = %q, want .worktrees", cfg.WorktreesDir)
	}
	if cfg.MarkerFile != ".session.json" {
		t.Errorf("MarkerFile = %q, want .session.json", cfg.MarkerFile)
	}
	if cfg.LocalTimeout() != 5*time.Second {
		t.Errorf("LocalTimeout = %v, want 5s", cfg.LocalTimeout())
	}
	if cfg.RemoteTimeout() != 20*time.Second {
		t.Errorf("RemoteTimeout = %v, want 20s", cfg.RemoteTimeout())
	}
	if cfg.RemoteTimeout() <= cfg.LocalTimeout() {
		t.Errorf("remote tier should exceed local tier")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	root := t.TempDir()

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ProjectRoot != root {
		t.Errorf("ProjectRoot = %q, want %q", cfg.ProjectRoot, root)
	}
	if cfg.WorktreesRoot() != filepath.Join(root, ".worktrees") {
		t.Errorf("WorktreesRoot = %q", cfg.WorktreesRoot())
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	root := t.TempDir()
	content := `{"worktrees_dir": "wt", "local_timeout_secs": 2, "log_level": "debug"}`
	if err := os.WriteFile(filepath.Join(root, ConfigFileName), []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.WorktreesDir != "wt" {
		t.Errorf("WorktreesDir = %q, want wt", cfg.WorktreesDir)
	}
	if cfg.LocalTimeout() != 2*time.Second {
		t.Errorf("LocalTimeout = %v, want 2s", cfg.LocalTimeout())
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	// Fields absent from the file keep defaults.
	if cfg.MarkerFile != ".session.json" {
		t.Errorf("MarkerFile = %q, want default", cfg.MarkerFile)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ConfigFileName), []byte("{not json"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(root); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvAllowOrphanRemoval, "1")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q, want error", cfg.LogLevel)
	}
	if !cfg.AllowOrphanRemoval {
		t.Error("AllowOrphanRemoval should be set")
	}
}

func TestEnvTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", "yes", "on", " 1 "} {
		if !envTruthy(v) {
			t.Errorf("envTruthy(%q) = false, want true", v)
		}
	}
	for _, v := range []string{"", "0", "false", "off", "nope"} {
		if envTruthy(v) {
			t.Errorf("envTruthy(%q) = true, want false", v)
		}
	}
}
