// Package config carries the guard's settings: a JSON file merged over
// defaults, plus the small environment surface the hook host and trusted
// automation use to steer it.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Environment variables recognized by the guard.
const (
	// EnvProjectRoot overrides project-root discovery.
	EnvProjectRoot = "WTGUARD_ROOT"
	// EnvAllowOrphanRemoval bypasses the relaxed orphan-removal guard.
	// An escape hatch for trusted automation; orphans cannot prove safety
	// the normal way.
	EnvAllowOrphanRemoval = "WTGUARD_ALLOW_ORPHAN_REMOVAL"
	// EnvSessionAncestors carries a fork session's ancestry chain as a
	// comma-separated id list, exported by the session wrapper.
	EnvSessionAncestors = "WTGUARD_SESSION_ANCESTORS"
	// EnvLogLevel overrides the configured log level.
	EnvLogLevel = "WTGUARD_LOG_LEVEL"
	// EnvLogFile overrides the configured log path.
	EnvLogFile = "WTGUARD_LOG_FILE"
)

// ConfigFileName is the per-project settings file, relative to the
// project root.
const ConfigFileName = ".wtguard.json"

// Config holds guard configuration.
type Config struct {
	// WorktreesDir is the directory under the project root that holds
	// session worktrees.
	WorktreesDir string `json:"worktrees_dir"`
	// MarkerFile is the session marker file name inside each worktree.
	MarkerFile string `json:"marker_file"`
	// LocalTimeoutSecs bounds local VCS queries.
	LocalTimeoutSecs int `json:"local_timeout_secs"`
	// RemoteTimeoutSecs bounds code-host API calls via gh.
	RemoteTimeoutSecs int `json:"remote_timeout_secs"`
	// RecentCommitMins is the active-work recency window.
	RecentCommitMins int `json:"recent_commit_mins"`
	// MergedCacheTTLSecs is how long an unmerged PR lookup stays cached.
	MergedCacheTTLSecs int    `json:"merged_cache_ttl_secs"`
	LogLevel           string `json:"log_level"`
	LogPath            string `json:"-"`

	// ProjectRoot is resolved at startup, not persisted.
	ProjectRoot string `json:"-"`
	// AllowOrphanRemoval mirrors EnvAllowOrphanRemoval at load time.
	AllowOrphanRemoval bool `json:"-"`
}

func defaultStateDir() string {
	switch runtime.GOOS {
	case "windows":
		if localAppData := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); localAppData != "" {
			return filepath.Join(localAppData, "wtguard")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Local", "wtguard")
	default:
		if stateHome := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); stateHome != "" {
			return filepath.Join(stateHome, "wtguard")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".local", "state", "wtguard")
	}
}

// StateDir returns the directory for durable cross-invocation state
// (logs, the merged-PR cache).
func StateDir() string {
	return defaultStateDir()
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		WorktreesDir:       ".worktrees",
		MarkerFile:         ".session.json",
		LocalTimeoutSecs:   5,
		RemoteTimeoutSecs:  20,
		RecentCommitMins:   30,
		MergedCacheTTLSecs: 60,
		LogLevel:           "info",
		LogPath:            filepath.Join(defaultStateDir(), "wtguard.log"),
	}
}

// Load reads the project's settings file, merging it over defaults and then
// applying environment overrides. A missing file is not an error.
func Load(projectRoot string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.ProjectRoot = projectRoot

	if projectRoot != "" {
		data, err := os.ReadFile(filepath.Join(projectRoot, ConfigFileName))
		if err == nil {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if cfg.WorktreesDir == "" {
		cfg.WorktreesDir = ".worktrees"
	}
	if cfg.MarkerFile == "" {
		cfg.MarkerFile = ".session.json"
	}
	if cfg.LocalTimeoutSecs <= 0 {
		cfg.LocalTimeoutSecs = 5
	}
	if cfg.RemoteTimeoutSecs <= 0 {
		cfg.RemoteTimeoutSecs = 20
	}
	if cfg.RecentCommitMins <= 0 {
		cfg.RecentCommitMins = 30
	}
	if cfg.MergedCacheTTLSecs <= 0 {
		cfg.MergedCacheTTLSecs = 60
	}

	if level := strings.TrimSpace(os.Getenv(EnvLogLevel)); level != "" {
		cfg.LogLevel = level
	}
	if path := strings.TrimSpace(os.Getenv(EnvLogFile)); path != "" {
		cfg.LogPath = path
	}
	cfg.AllowOrphanRemoval = envTruthy(os.Getenv(EnvAllowOrphanRemoval))

	return cfg, nil
}

func envTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// LocalTimeout returns the budget for local VCS queries.
func (c *Config) LocalTimeout() time.Duration {
	return time.Duration(c.LocalTimeoutSecs) * time.Second
}

// RemoteTimeout returns the budget for code-host API calls.
func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.RemoteTimeoutSecs) * time.Second
}

// RecentCommitWindow returns the active-work recency window.
func (c *Config) RecentCommitWindow() time.Duration {
	return time.Duration(c.RecentCommitMins) * time.Minute
}

// MergedCacheTTL returns how long an unmerged PR lookup stays cached.
func (c *Config) MergedCacheTTL() time.Duration {
	return time.Duration(c.MergedCacheTTLSecs) * time.Second
}

// WorktreesRoot returns the absolute worktrees directory.
func (c *Config) WorktreesRoot() string {
	return filepath.Join(c.ProjectRoot, c.WorktreesDir)
}
