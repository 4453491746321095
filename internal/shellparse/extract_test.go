package shellparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func firstSegment(t *testing.T, raw string) Segment {
	t.Helper()
	parsed := Parse(raw)
	require.NotEmpty(t, parsed.Segments)
	return parsed.Segments[0]
}

func TestWorktreeTarget(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{"git worktree remove .worktrees/issue-42", ".worktrees/issue-42", true},
		{"git worktree remove --force .worktrees/issue-42", ".worktrees/issue-42", true},
		{"git worktree remove -f -- .worktrees/issue-42", ".worktrees/issue-42", true},
		{"git -C /repo worktree remove wt", "wt", true},
		{"git worktree unlock wt", "wt", true},
		{"git worktree lock --reason busy wt", "wt", true},
		{"git worktree list", "", false},
		{"git worktree remove", "", false},
		{"git status", "", false},
		{"echo git worktree remove wt", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := WorktreeTarget(firstSegment(t, tt.raw))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGhPrMergeArg(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{"gh pr merge 42 --squash", "42", true},
		{"gh pr merge --squash --delete-branch", "", true},
		{"gh pr merge feature/x", "feature/x", true},
		// The flag value must never be misread as the PR number.
		{"gh pr merge --body 123 --squash", "", true},
		{"gh pr merge -R owner/repo 7", "7", true},
		{"gh pr merge --match-head-commit 9f3c 42", "42", true},
		{"gh pr view 42", "", false},
		{"gh issue create --body 'gh pr merge 42'", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := GhPrMergeArg(firstSegment(t, tt.raw))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRmTargets(t *testing.T) {
	seg := firstSegment(t, "rm -rf .worktrees/a .worktrees/b")
	assert.Equal(t, []string{".worktrees/a", ".worktrees/b"}, RmTargets(seg))

	seg = firstSegment(t, "rm -- -strange")
	assert.Equal(t, []string{"-strange"}, RmTargets(seg))

	assert.Nil(t, RmTargets(firstSegment(t, "ls -la")))
}

func TestHasPathLiteral_QuoteExact(t *testing.T) {
	const p = ".worktrees/issue-42"
	tests := []struct {
		raw  string
		want bool
	}{
		{`rm -rf .worktrees/issue-42`, true},
		{`rm -rf '.worktrees/issue-42'`, true},
		{`rm -rf ".worktrees/issue-42"`, true},
		// Mismatched quote characters never match.
		{`rm -rf '.worktrees/issue-42"`, false},
		{`rm -rf ".worktrees/issue-42'`, false},
		// One-sided quoting never matches either.
		{`rm -rf '.worktrees/issue-42`, false},
		{`rm -rf .worktrees/issue-42"`, false},
		{`echo nothing here`, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, HasPathLiteral(tt.raw, p))
		})
	}
}

func TestHasPathLiteral_SecondOccurrenceMatches(t *testing.T) {
	// A mismatched first occurrence must not hide a clean later one.
	raw := `echo '.worktrees/x" && rm -rf .worktrees/x`
	assert.True(t, HasPathLiteral(raw, ".worktrees/x"))
}
