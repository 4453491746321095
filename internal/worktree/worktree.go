// Package worktree observes the state of a repository's worktrees: the
// inventory git itself reports, advisory lock flags, per-worktree session
// markers, and signs of work in progress. It never mutates the authoritative
// record except through git's own worktree primitives.
//
// Every query that leaves the process degrades to its "nothing found" value
// on failure (non-zero exit, timeout, missing executable). A transient git
// failure must never block an otherwise-legitimate operation.
package worktree

import (
	"strings"
	"time"
)

// Worktree is one entry of the repository's worktree inventory.
type Worktree struct {
	// Path is the absolute checkout path.
	Path string
	// Branch is the checked-out branch name, or "" on a detached HEAD.
	Branch string
	// Locked is git's advisory busy flag, set via `git worktree lock`.
	Locked bool
	// LockReason is the free-text reason recorded with the lock, if any.
	LockReason string
}

// SessionMarker is the advisory per-worktree ownership record written when a
// session claims a worktree. It may be absent, stale or malformed; it is
// evidence, never ground truth.
type SessionMarker struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	// ParentIDs is the ancestry chain for sessions forked from a parent
	// conversation, most recent ancestor first.
	ParentIDs []string `json:"parent_ids,omitempty"`
}

// Covers reports whether the marker belongs to the given session, either
// directly or through the session's ancestry chain (a fork acting on its
// own ancestor's worktree).
func (m SessionMarker) Covers(sessionID string, ancestors []string) bool {
	if sessionID == "" || m.SessionID == "" {
		return false
	}
	if m.SessionID == sessionID {
		return true
	}
	for _, a := range ancestors {
		if a != "" && m.SessionID == a {
			return true
		}
	}
	return false
}

// parsePorcelain parses `git worktree list --porcelain` output: repeated
// blocks separated by a blank line, each starting with a path line, followed
// by optional branch/detached/locked lines. Blocks with missing optional
// lines are fine; blocks without a path line are dropped.
func parsePorcelain(out string) []Worktree {
	var worktrees []Worktree
	var cur *Worktree

	flush := func() {
		if cur != nil && cur.Path != "" {
			worktrees = append(worktrees, *cur)
		}
		cur = nil
	}

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		switch {
		case strings.HasPrefix(line, "worktree "):
			flush()
			cur = &Worktree{Path: strings.TrimPrefix(line, "worktree ")}
		case cur == nil:
			// Tolerate leading garbage before the first path line.
		case strings.HasPrefix(line, "branch refs/heads/"):
			cur.Branch = strings.TrimPrefix(line, "branch refs/heads/")
		case strings.HasPrefix(line, "branch "):
			cur.Branch = strings.TrimPrefix(line, "branch ")
		case line == "locked":
			cur.Locked = true
		case strings.HasPrefix(line, "locked "):
			cur.Locked = true
			cur.LockReason = strings.TrimPrefix(line, "locked ")
		}
	}
	flush()

	return worktrees
}
