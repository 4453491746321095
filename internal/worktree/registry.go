package worktree

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/codefionn/wtguard/internal/logger"
)

// Options configures a Registry.
type Options struct {
	// Root is the absolute path of the main repository checkout.
	Root string
	// WorktreesDir is the directory under Root that holds session
	// worktrees, e.g. ".worktrees".
	WorktreesDir string
	// MarkerFile is the session marker file name inside each worktree.
	MarkerFile string
	// RecentCommitWindow is how far back a commit counts as a sign of
	// active work.
	RecentCommitWindow time.Duration
}

// Registry produces point-in-time snapshots of the repository's worktrees
// and session claims. It holds no state between queries; every call
// re-derives from git and the filesystem.
type Registry struct {
	run  Runner
	opts Options
}

// NewRegistry creates a registry over the given runner.
func NewRegistry(run Runner, opts Options) *Registry {
	if opts.WorktreesDir == "" {
		opts.WorktreesDir = ".worktrees"
	}
	if opts.MarkerFile == "" {
		opts.MarkerFile = ".session.json"
	}
	if opts.RecentCommitWindow == 0 {
		opts.RecentCommitWindow = 30 * time.Minute
	}
	return &Registry{run: run, opts: opts}
}

// Root returns the main checkout path the registry was configured with.
func (r *Registry) Root() string { return r.opts.Root }

// WorktreesRoot returns the directory that holds session worktrees.
func (r *Registry) WorktreesRoot() string {
	return filepath.Join(r.opts.Root, r.opts.WorktreesDir)
}

// MarkerPath returns the session marker location for a worktree path.
func (r *Registry) MarkerPath(wtPath string) string {
	return filepath.Join(wtPath, r.opts.MarkerFile)
}

// ResolveRoot determines the main checkout path: the explicit override if
// set, otherwise git's answer for the given working directory. Returns ""
// when neither works.
func ResolveRoot(ctx context.Context, run Runner, override, cwd string) string {
	if override != "" {
		return filepath.Clean(override)
	}
	out, err := run.Output(ctx, "", "git", "-C", cwd, "rev-parse", "--show-toplevel")
	if err != nil {
		logger.Debug("root resolution failed for %q: %v", cwd, err)
		return ""
	}
	// The toplevel of a session worktree is the worktree itself; the main
	// checkout is the first entry of the worktree inventory.
	all, err := run.Output(ctx, "", "git", "-C", cwd, "worktree", "list", "--porcelain")
	if err == nil {
		if worktrees := parsePorcelain(all); len(worktrees) > 0 {
			return worktrees[0].Path
		}
	}
	return out
}

// ListWorktrees returns the current worktree inventory. Any git failure
// yields an empty list.
func (r *Registry) ListWorktrees(ctx context.Context) []Worktree {
	out, err := r.run.Output(ctx, "", "git", "-C", r.opts.Root, "worktree", "list", "--porcelain")
	if err != nil {
		logger.Warn("worktree list failed: %v", err)
		return nil
	}
	return parsePorcelain(out)
}

// LockedPaths returns the locked worktrees keyed by cleaned absolute path.
func (r *Registry) LockedPaths(ctx context.Context) map[string]Worktree {
	locked := make(map[string]Worktree)
	for _, wt := range r.ListWorktrees(ctx) {
		if wt.Locked {
			locked[filepath.Clean(wt.Path)] = wt
		}
	}
	return locked
}

// WorktreeForBranch returns the worktree that has the given branch checked
// out, if any.
func (r *Registry) WorktreeForBranch(ctx context.Context, branch string) (Worktree, bool) {
	if branch == "" {
		return Worktree{}, false
	}
	for _, wt := range r.ListWorktrees(ctx) {
		if wt.Branch == branch {
			return wt, true
		}
	}
	return Worktree{}, false
}

// CurrentWorktree resolves the worktree containing the caller-provided
// working directory. The directory is passed to git explicitly rather than
// relying on this process's own cwd, since the guard may run from a
// different directory than the command under evaluation.
func (r *Registry) CurrentWorktree(ctx context.Context, explicitCwd string) (Worktree, bool) {
	if explicitCwd == "" {
		return Worktree{}, false
	}
	top, err := r.run.Output(ctx, "", "git", "-C", explicitCwd, "rev-parse", "--show-toplevel")
	if err != nil {
		logger.Debug("current worktree lookup failed for %q: %v", explicitCwd, err)
		return Worktree{}, false
	}
	top = filepath.Clean(top)
	for _, wt := range r.ListWorktrees(ctx) {
		if filepath.Clean(wt.Path) == top {
			return wt, true
		}
	}
	return Worktree{}, false
}

// ReadMarker loads the session marker of a worktree. Missing, unreadable or
// malformed markers are all reported as absent.
func (r *Registry) ReadMarker(wtPath string) (SessionMarker, bool) {
	data, err := os.ReadFile(r.MarkerPath(wtPath))
	if err != nil {
		return SessionMarker{}, false
	}
	var marker SessionMarker
	if err := json.Unmarshal(data, &marker); err != nil {
		logger.Debug("malformed session marker in %s: %v", wtPath, err)
		return SessionMarker{}, false
	}
	if marker.SessionID == "" {
		return SessionMarker{}, false
	}
	return marker, true
}

// WriteMarker records a session claim on a worktree. Only claim tooling
// calls this; the guard itself treats markers as read-only.
func (r *Registry) WriteMarker(wtPath string, marker SessionMarker) error {
	data, err := json.MarshalIndent(marker, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.MarkerPath(wtPath), append(data, '\n'), 0644)
}

// IsSelfSessionWorktree reports whether the worktree's marker names exactly
// the supplied session id. No file, no directory, empty id, or mismatch all
// yield false: granting another session's rights by accident is worse than
// an extra block.
func (r *Registry) IsSelfSessionWorktree(wtPath, sessionID string) bool {
	if sessionID == "" {
		return false
	}
	marker, ok := r.ReadMarker(wtPath)
	if !ok {
		return false
	}
	return marker.SessionID == sessionID
}

// CheckActiveWorkSigns returns human-readable warnings about a worktree that
// looks busy: uncommitted changes or a commit inside the recency window.
// Purely advisory; never feeds a block.
func (r *Registry) CheckActiveWorkSigns(ctx context.Context, wtPath string) []string {
	var signs []string

	status, err := r.run.Output(ctx, "", "git", "-C", wtPath, "status", "--porcelain")
	if err == nil && status != "" {
		signs = append(signs, "uncommitted changes in "+wtPath)
	}

	out, err := r.run.Output(ctx, "", "git", "-C", wtPath, "log", "-1", "--format=%ct")
	if err == nil && out != "" {
		if ts, parseErr := strconv.ParseInt(out, 10, 64); parseErr == nil {
			if age := time.Since(time.Unix(ts, 0)); age >= 0 && age < r.opts.RecentCommitWindow {
				signs = append(signs, "recent commit in "+wtPath)
			}
		}
	}

	return signs
}

// OrphanDirectories returns directories under the worktrees root that exist
// on disk but are absent from git's worktree inventory.
func (r *Registry) OrphanDirectories(ctx context.Context) []string {
	entries, err := os.ReadDir(r.WorktreesRoot())
	if err != nil {
		return nil
	}

	known := make(map[string]bool)
	for _, wt := range r.ListWorktrees(ctx) {
		known[filepath.Clean(wt.Path)] = true
	}

	var orphans []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(r.WorktreesRoot(), entry.Name())
		if !known[filepath.Clean(path)] {
			orphans = append(orphans, path)
		}
	}
	return orphans
}

// RemoveWorktree removes a worktree through git's own primitive, forcing
// past dirty state. Used by opportunistic cleanup after an approval.
func (r *Registry) RemoveWorktree(ctx context.Context, wtPath string) error {
	_, err := r.run.Output(ctx, "", "git", "-C", r.opts.Root, "worktree", "remove", "--force", wtPath)
	return err
}
