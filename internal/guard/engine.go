package guard

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/codefionn/wtguard/internal/config"
	"github.com/codefionn/wtguard/internal/ghcli"
	"github.com/codefionn/wtguard/internal/logger"
	"github.com/codefionn/wtguard/internal/shellparse"
	"github.com/codefionn/wtguard/internal/worktree"
)

// Engine evaluates commands against the worktree ownership policy.
type Engine struct {
	reg *worktree.Registry
	gh  *ghcli.Client
	cfg *config.Config
}

// New creates a policy engine over the given registry and gh client.
func New(reg *worktree.Registry, gh *ghcli.Client, cfg *config.Config) *Engine {
	return &Engine{reg: reg, gh: gh, cfg: cfg}
}

// snapshot is the worktree inventory read once per decision, indexed for
// the rule checks.
type snapshot struct {
	byPath   map[string]worktree.Worktree
	byBranch map[string]worktree.Worktree
}

func (e *Engine) takeSnapshot(ctx context.Context) snapshot {
	snap := snapshot{
		byPath:   make(map[string]worktree.Worktree),
		byBranch: make(map[string]worktree.Worktree),
	}
	for _, wt := range e.reg.ListWorktrees(ctx) {
		snap.byPath[filepath.Clean(wt.Path)] = wt
		if wt.Branch != "" {
			snap.byBranch[wt.Branch] = wt
		}
	}
	return snap
}

// Evaluate decides whether the command may run. Commands that do not
// classify as worktree removal, filesystem removal under the worktrees
// root, branch deletion, or a PR merge are approved without further checks.
func (e *Engine) Evaluate(ctx context.Context, req Request) Decision {
	parsed := shellparse.Parse(req.Command)
	if !guarded(parsed) {
		return approve()
	}

	snap := e.takeSnapshot(ctx)
	result := approve()

	for i, seg := range parsed.Segments {
		switch {
		case shellparse.IsWorktreeRemoveSegment(seg):
			target, ok := shellparse.WorktreeTarget(seg)
			if !ok {
				continue
			}
			abs := e.resolveTarget(parsed, i, target, req.Cwd, snap)
			dec := e.checkRemoval(ctx, req, abs, snap, false)
			if dec.Block {
				return dec
			}
			result.merge(dec)

		case seg.Name == "rm":
			for _, abs := range e.rmWorktreeUnits(parsed, i, seg, req, snap) {
				dec := e.checkRemoval(ctx, req, abs, snap, true)
				if dec.Block {
					return dec
				}
				result.merge(dec)
			}

		default:
			if _, ok := shellparse.GhPrMergeArg(seg); ok {
				dec := e.checkPrMerge(ctx, req, parsed, i, seg, snap)
				if dec.Block {
					return dec
				}
				result.merge(dec)
			}
		}

		if branch, ok := shellparse.BranchDeleteTarget(seg); ok {
			dec := e.checkBranchDelete(ctx, req, branch, snap)
			if dec.Block {
				return dec
			}
		}
	}
	return result
}

// guarded reports whether any segment matches a pattern the policy rules
// cover. Everything else is ordinary, unguarded input.
func guarded(p shellparse.ParsedCommand) bool {
	for _, seg := range p.Segments {
		if shellparse.IsWorktreeRemoveSegment(seg) || seg.Name == "rm" {
			return true
		}
		if _, ok := shellparse.GhPrMergeArg(seg); ok {
			return true
		}
		if shellparse.HasDeleteBranchFlag(seg) {
			return true
		}
	}
	return false
}

// resolveTarget turns a command's target path into an absolute worktree
// path. The base-directory rules give one candidate; when the target is
// relative and that candidate is not in the inventory, the target is also
// tried against the project root, since agents habitually spell worktree
// paths root-relative regardless of where the command runs.
func (e *Engine) resolveTarget(p shellparse.ParsedCommand, idx int, target, hookCwd string, snap snapshot) string {
	base := p.BaseDir(idx, hookCwd)
	cand := shellparse.ResolveTarget(base, target)
	if _, ok := snap.byPath[cand]; ok {
		return cand
	}
	if !filepath.IsAbs(target) && e.reg.Root() != "" {
		alt := shellparse.ResolveTarget(e.reg.Root(), target)
		if _, ok := snap.byPath[alt]; ok {
			return alt
		}
	}
	return cand
}

// checkRemoval applies the locked-worktree precedence to a removal of abs:
// unknown paths are approved (or evaluated as orphans when the removal came
// through the filesystem), unlocked worktrees are approved with advisory
// warnings, and locked worktrees are approved only for the owning session
// or once the branch's PR has merged.
func (e *Engine) checkRemoval(ctx context.Context, req Request, abs string, snap snapshot, viaFs bool) Decision {
	wt, known := snap.byPath[abs]
	if !known {
		if viaFs {
			return e.checkOrphanRemoval(ctx, abs)
		}
		return approve()
	}
	if !wt.Locked {
		return e.busyWarnings(ctx, req, abs)
	}

	marker, hasMarker := e.reg.ReadMarker(abs)
	if hasMarker && marker.Covers(req.SessionID, req.Ancestors) {
		return approve()
	}
	if wt.Branch != "" && e.gh.BranchMerged(ctx, wt.Branch) {
		logger.Info("allowing removal of %s: PR for %s already merged", abs, wt.Branch)
		return Decision{CleanupPath: abs}
	}

	owner := "an unknown session"
	if hasMarker && marker.SessionID != "" {
		owner = "session " + marker.SessionID
	} else if wt.LockReason != "" {
		owner = fmt.Sprintf("another session (%s)", wt.LockReason)
	}
	cause := fmt.Sprintf("worktree removal blocked: %s is locked by %s", abs, owner)
	if wt.Branch != "" {
		cause += fmt.Sprintf(" (branch %s)", wt.Branch)
	}
	return block(cause,
		"Another active session has claimed this worktree; removing it would destroy its work in progress.",
		"Coordinate with the owning session, or wait for its pull request to merge.",
		fmt.Sprintf("If the worktree is abandoned, release the lock first: git worktree unlock %s", abs),
		fmt.Sprintf("Then retry: git worktree remove %s", abs),
	)
}

// checkOrphanRemoval handles a directory under the worktrees root that git
// does not list. Orphans cannot prove self-ownership or a merged PR the
// normal way, so removal is blocked unless the caller opted out.
func (e *Engine) checkOrphanRemoval(ctx context.Context, abs string) Decision {
	orphan := false
	for _, dir := range e.reg.OrphanDirectories(ctx) {
		if filepath.Clean(dir) == abs {
			orphan = true
			break
		}
	}
	if !orphan {
		// Not on disk either; the removal is a no-op.
		return approve()
	}
	if e.cfg.AllowOrphanRemoval {
		logger.Info("allowing orphan removal of %s: %s is set", abs, config.EnvAllowOrphanRemoval)
		return approve()
	}
	return block(
		fmt.Sprintf("removal blocked: %s is not in the git worktree inventory", abs),
		"Directories under the worktrees root that git does not know about may hold another session's unregistered work, and their safety cannot be verified.",
		"Inspect the directory and salvage anything worth keeping.",
		fmt.Sprintf("To remove it anyway, set %s=1 and retry.", config.EnvAllowOrphanRemoval),
	)
}

// rmWorktreeUnits maps an rm segment's targets to the worktree directories
// they fall under. Paths outside the worktrees root are ignored. When the
// segment yields no parseable targets, the raw command is scanned for
// quote-exact literals of locked worktree paths as a fallback.
func (e *Engine) rmWorktreeUnits(p shellparse.ParsedCommand, idx int, seg shellparse.Segment, req Request, snap snapshot) []string {
	root := e.reg.WorktreesRoot()
	if root == "" {
		return nil
	}
	targets := shellparse.RmTargets(seg)
	var units []string
	seen := make(map[string]bool)
	add := func(abs string) {
		if unit := worktreeUnit(root, abs); unit != "" && !seen[unit] {
			seen[unit] = true
			units = append(units, unit)
		}
	}
	for _, target := range targets {
		add(e.resolveTarget(p, idx, target, req.Cwd, snap))
	}
	if len(targets) == 0 {
		for path, wt := range snap.byPath {
			if !wt.Locked {
				continue
			}
			if shellparse.HasPathLiteral(p.Raw, path) {
				add(path)
				continue
			}
			if rel, err := filepath.Rel(e.reg.Root(), path); err == nil && shellparse.HasPathLiteral(p.Raw, rel) {
				add(path)
			}
		}
	}
	return units
}

// worktreeUnit returns the first-level directory under root that abs falls
// inside, or "" when abs is not under root. Removing any path inside a
// worktree is judged as touching that worktree.
func worktreeUnit(root, abs string) string {
	rel, err := filepath.Rel(filepath.Clean(root), abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	parts := strings.Split(rel, string(filepath.Separator))
	return filepath.Join(filepath.Clean(root), parts[0])
}

// checkBranchDelete blocks deleting a branch that a different worktree has
// checked out.
func (e *Engine) checkBranchDelete(ctx context.Context, req Request, branch string, snap snapshot) Decision {
	wt, found := snap.byBranch[branch]
	if !found {
		return approve()
	}
	if cur, ok := e.reg.CurrentWorktree(ctx, req.Cwd); ok && filepath.Clean(cur.Path) == filepath.Clean(wt.Path) {
		return approve()
	}
	return block(
		fmt.Sprintf("branch deletion blocked: %s is checked out in %s", branch, wt.Path),
		"Deleting a branch out from under the worktree that has it checked out corrupts that worktree.",
		fmt.Sprintf("Remove or switch that worktree first: git worktree remove %s", wt.Path),
		fmt.Sprintf("Then retry deleting %s.", branch),
	)
}

// checkPrMerge blocks a `gh pr merge` whose PR branch maps to a locked
// worktree claimed by another session, offering to run the merge from the
// owning worktree instead. A --delete-branch flag additionally gets the
// checked-out-elsewhere branch check.
func (e *Engine) checkPrMerge(ctx context.Context, req Request, p shellparse.ParsedCommand, idx int, seg shellparse.Segment, snap snapshot) Decision {
	selector, _ := shellparse.GhPrMergeArg(seg)
	branch := e.prHeadBranch(ctx, p, idx, selector, req.Cwd)
	if branch == "" {
		return approve()
	}
	wt, found := snap.byBranch[branch]
	if !found {
		return approve()
	}

	if wt.Locked {
		marker, hasMarker := e.reg.ReadMarker(filepath.Clean(wt.Path))
		if !hasMarker || !marker.Covers(req.SessionID, req.Ancestors) {
			dec := block(
				fmt.Sprintf("pr merge blocked: branch %s belongs to locked worktree %s", branch, wt.Path),
				"That worktree is claimed by another active session; merging from here can race its in-progress work.",
				"Wait for the owning session to finish, or coordinate the merge with it.",
				fmt.Sprintf("To run the merge from the owning worktree instead: wtguard safe-merge %s", safeMergeSelector(selector, branch)),
			)
			dec.SafeMergePath = filepath.Clean(wt.Path)
			dec.SafeMergeSelector = safeMergeSelector(selector, branch)
			return dec
		}
	}

	if shellparse.HasDeleteBranchFlag(seg) {
		if dec := e.checkBranchDelete(ctx, req, branch, snap); dec.Block {
			return dec
		}
	}

	dec := e.busyWarnings(ctx, req, filepath.Clean(wt.Path))
	if !wt.Locked && e.gh.BranchMerged(ctx, branch) {
		if cur, ok := e.reg.CurrentWorktree(ctx, req.Cwd); !ok || filepath.Clean(cur.Path) != filepath.Clean(wt.Path) {
			dec.CleanupPath = filepath.Clean(wt.Path)
		}
	}
	return dec
}

func safeMergeSelector(selector, branch string) string {
	if selector != "" {
		return selector
	}
	return branch
}

// prHeadBranch resolves the head branch of the PR a merge segment targets.
// A branch-shaped selector is taken as-is; a numeric or URL selector is
// resolved through gh; no selector means the current branch of the
// segment's effective working directory. Any lookup failure yields "".
func (e *Engine) prHeadBranch(ctx context.Context, p shellparse.ParsedCommand, idx int, selector, hookCwd string) string {
	switch {
	case selector == "":
		if cur, ok := e.reg.CurrentWorktree(ctx, p.BaseDir(idx, hookCwd)); ok {
			return cur.Branch
		}
		return ""
	case isNumericSelector(selector) || strings.Contains(selector, "://"):
		if pr, ok := e.gh.ViewPR(ctx, selector); ok {
			return pr.HeadBranch
		}
		return ""
	default:
		return selector
	}
}

func isNumericSelector(s string) bool {
	_, err := strconv.Atoi(strings.TrimPrefix(s, "#"))
	return err == nil
}

// busyWarnings attaches active-work signs to an approve that touches a
// registered but unlocked worktree claimed by a different session. Purely
// advisory.
func (e *Engine) busyWarnings(ctx context.Context, req Request, wtPath string) Decision {
	dec := approve()
	marker, ok := e.reg.ReadMarker(wtPath)
	if !ok || marker.Covers(req.SessionID, req.Ancestors) {
		return dec
	}
	dec.Warnings = e.reg.CheckActiveWorkSigns(ctx, wtPath)
	return dec
}

// TryAutoCleanup removes a now-safe worktree after an approve has been
// delivered. Best effort: failure is logged and swallowed, never surfaced,
// because cleanup was not the operation the caller asked for.
func (e *Engine) TryAutoCleanup(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := e.reg.RemoveWorktree(ctx, path); err != nil {
		logger.Debug("auto-cleanup of %s failed: %v", path, err)
		return
	}
	logger.Info("auto-cleanup removed %s", path)
}

// ExecuteSafeMerge runs the PR merge from inside the worktree that owns the
// PR's branch.
func (e *Engine) ExecuteSafeMerge(ctx context.Context, path, selector string) error {
	if path == "" {
		return fmt.Errorf("no owning worktree identified")
	}
	return e.gh.MergePR(ctx, path, selector)
}
