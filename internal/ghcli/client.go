// Package ghcli looks up pull requests through the gh CLI. Lookups are
// remote-tier operations: they carry the larger timeout budget and, like
// every external query in the guard, fail open to "nothing found".
package ghcli

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/codefionn/wtguard/internal/logger"
	"github.com/codefionn/wtguard/internal/worktree"
)

// PullRequest is the slice of PR state the guard cares about.
type PullRequest struct {
	Number     int    `json:"number"`
	HeadBranch string `json:"headRefName"`
	State      string `json:"state"`
}

// Merged reports whether the PR has been merged.
func (p PullRequest) Merged() bool {
	return strings.EqualFold(p.State, "MERGED")
}

// Client queries the code host through the gh CLI.
type Client struct {
	run   worktree.Runner
	dir   string // repository directory gh runs in
	cache *MergedCache
}

// NewClient creates a client running gh inside dir. cache may be nil to
// disable cross-invocation caching.
func NewClient(run worktree.Runner, dir string, cache *MergedCache) *Client {
	return &Client{run: run, dir: dir, cache: cache}
}

// ViewPR returns the pull request matching the selector, which gh accepts
// as a number, URL or branch name. Returns ok=false when there is none or
// the lookup fails.
func (c *Client) ViewPR(ctx context.Context, selector string) (PullRequest, bool) {
	if selector == "" {
		return PullRequest{}, false
	}
	out, err := c.run.Output(ctx, c.dir, "gh", "pr", "view", selector,
		"--json", "number,headRefName,state")
	if err != nil {
		logger.Debug("gh pr view %s failed: %v", selector, err)
		return PullRequest{}, false
	}
	var pr PullRequest
	if err := json.Unmarshal([]byte(out), &pr); err != nil {
		logger.Debug("gh pr view %s returned unparseable output: %v", selector, err)
		return PullRequest{}, false
	}
	return pr, true
}

// MergePR runs `gh pr merge` from inside dir, squashing by default. Used to
// perform a merge from the worktree that owns the PR's branch rather than
// wherever the original command was issued. selector may be empty, in which
// case gh targets dir's current branch.
func (c *Client) MergePR(ctx context.Context, dir, selector string) error {
	args := []string{"pr", "merge"}
	if selector != "" {
		args = append(args, selector)
	}
	args = append(args, "--squash")
	_, err := c.run.Output(ctx, dir, "gh", args...)
	return err
}

// BranchMerged reports whether the branch's PR is merged, consulting the
// durable cache first. A cache miss or expired entry falls through to gh;
// the answer is then recorded for later invocations. Any failure along the
// way reports false.
func (c *Client) BranchMerged(ctx context.Context, branch string) bool {
	if c.cache != nil {
		if merged, ok := c.cache.Lookup(branch); ok {
			return merged
		}
	}
	pr, ok := c.ViewPR(ctx, branch)
	if !ok {
		return false
	}
	if c.cache != nil {
		c.cache.Record(branch, pr.Merged())
	}
	return pr.Merged()
}
