package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/codefionn/wtguard/internal/config"
	"github.com/codefionn/wtguard/internal/ghcli"
	"github.com/codefionn/wtguard/internal/guard"
	"github.com/codefionn/wtguard/internal/logger"
	"github.com/codefionn/wtguard/internal/worktree"
)

var flagRoot string

var rootCmd = &cobra.Command{
	Use:   "wtguard",
	Short: "Worktree lock guard for concurrent agent sessions",
	Long: `wtguard intercepts shell commands before an AI coding agent runs them and
blocks the ones that would destroy another session's worktree: removing a
locked worktree, rm -rf under the worktrees directory, deleting a branch
checked out elsewhere, or merging a PR out from under its owning session.

It is normally invoked as a Claude Code PreToolUse hook (see "wtguard hook
install") but the claim, status and safe-merge subcommands are also useful
directly.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", "",
		"project root (default: discovered via git, or $"+config.EnvProjectRoot+")")
	rootCmd.AddCommand(hookCmd, claimCmd, statusCmd, safeMergeCmd)
}

// runtime bundles the wired-up components a subcommand works with.
type runtime struct {
	cfg    *config.Config
	reg    *worktree.Registry
	gh     *ghcli.Client
	eng    *guard.Engine
	local  worktree.Runner
	remote worktree.Runner
}

// newRuntime resolves the project root, loads configuration and wires the
// registry, gh client and policy engine. It never fails: a missing root or
// broken config degrades to defaults so the hook path stays fail-open.
func newRuntime(ctx context.Context, cwd, sessionID string) *runtime {
	if cwd == "" {
		cwd, _ = os.Getwd()
	}
	override := flagRoot
	if override == "" {
		override = os.Getenv(config.EnvProjectRoot)
	}

	probe := worktree.ExecRunner{Timeout: config.DefaultConfig().LocalTimeout()}
	root := worktree.ResolveRoot(ctx, probe, override, cwd)

	cfg, cfgErr := config.Load(root)
	if cfgErr != nil {
		cfg = config.DefaultConfig()
		cfg.ProjectRoot = root
	}
	// Logging is best effort; the guard works without it.
	_ = logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath)
	if cfgErr != nil {
		logger.Warn("config load failed, using defaults: %v", cfgErr)
	}

	local := worktree.ExecRunner{Timeout: cfg.LocalTimeout()}
	remote := worktree.ExecRunner{Timeout: cfg.RemoteTimeout()}

	reg := worktree.NewRegistry(local, worktree.Options{
		Root:               cfg.ProjectRoot,
		WorktreesDir:       cfg.WorktreesDir,
		MarkerFile:         cfg.MarkerFile,
		RecentCommitWindow: cfg.RecentCommitWindow(),
	})
	cache := ghcli.NewMergedCache(config.StateDir(), sessionID, cfg.MergedCacheTTL())
	gh := ghcli.NewClient(remote, cfg.ProjectRoot, cache)

	return &runtime{
		cfg:    cfg,
		reg:    reg,
		gh:     gh,
		eng:    guard.New(reg, gh, cfg),
		local:  local,
		remote: remote,
	}
}
