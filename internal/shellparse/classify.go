package shellparse

import "strings"

// Subcommands of git that mutate the repository or working tree. Read-only
// plumbing (status, log, diff, ...) is deliberately absent.
var modifyingGitSubcommands = map[string]bool{
	"add": true, "am": true, "apply": true, "branch": true,
	"checkout": true, "cherry-pick": true, "clean": true, "commit": true,
	"fetch": true, "merge": true, "mv": true, "pull": true, "push": true,
	"rebase": true, "reset": true, "restore": true, "revert": true,
	"rm": true, "stash": true, "switch": true, "worktree": true,
}

// IsModifyingCommand reports whether any segment mutates a repository or the
// filesystem: a modifying git subcommand, an rm, or a gh pr merge. The check
// runs over the parsed structure, so the same keywords inside a quoted
// argument (echo "git push", gh issue create --body "...") never match.
func IsModifyingCommand(p ParsedCommand) bool {
	for _, seg := range p.Segments {
		if seg.Name == "rm" {
			return true
		}
		if sub, _ := gitSubcommand(seg); modifyingGitSubcommands[sub] {
			return true
		}
		if _, ok := GhPrMergeArg(seg); ok {
			return true
		}
	}
	return false
}

// IsWorktreeRemoveSegment reports whether the segment is a
// `git worktree remove` invocation.
func IsWorktreeRemoveSegment(seg Segment) bool {
	sub, rest := gitSubcommand(seg)
	return sub == "worktree" && len(rest) > 0 && rest[0] == "remove"
}

// IsWorktreeUnlockSegment reports whether the segment is a
// `git worktree unlock` invocation.
func IsWorktreeUnlockSegment(seg Segment) bool {
	sub, rest := gitSubcommand(seg)
	return sub == "worktree" && len(rest) > 0 && rest[0] == "unlock"
}

// IsWorktreeRemoveCommand reports whether any segment removes a worktree,
// including unlock-then-remove chains.
func IsWorktreeRemoveCommand(p ParsedCommand) bool {
	for _, seg := range p.Segments {
		if IsWorktreeRemoveSegment(seg) {
			return true
		}
	}
	return false
}

// IsGhPrCommand reports whether any segment is a `gh pr ...` invocation.
func IsGhPrCommand(p ParsedCommand) bool {
	for _, seg := range p.Segments {
		if seg.Name == "gh" && len(seg.Args) > 0 && seg.Args[0] == "pr" {
			return true
		}
	}
	return false
}

// IsCiMonitorCommand reports whether any segment watches CI state:
// `gh run watch`, `gh run view` or `gh pr checks`.
func IsCiMonitorCommand(p ParsedCommand) bool {
	for _, seg := range p.Segments {
		if seg.Name != "gh" || len(seg.Args) < 2 {
			continue
		}
		switch {
		case seg.Args[0] == "run" && (seg.Args[1] == "watch" || seg.Args[1] == "view"):
			return true
		case seg.Args[0] == "pr" && seg.Args[1] == "checks":
			return true
		}
	}
	return false
}

// HasDeleteBranchFlag reports whether the segment deletes a branch: a
// `git branch` with -d/-D/--delete, or a `gh pr merge` with
// -d/--delete-branch.
func HasDeleteBranchFlag(seg Segment) bool {
	if sub, rest := gitSubcommand(seg); sub == "branch" {
		for _, arg := range rest {
			switch {
			case arg == "-d" || arg == "-D" || arg == "--delete":
				return true
			case strings.HasPrefix(arg, "-") && !strings.HasPrefix(arg, "--"):
				// Combined short flags, e.g. -Df.
				if strings.ContainsAny(arg[1:], "dD") {
					return true
				}
			}
		}
		return false
	}
	if _, ok := GhPrMergeArg(seg); ok {
		return seg.HasFlag("-d") || seg.HasFlag("--delete-branch")
	}
	return false
}

// BranchDeleteTarget returns the branch name deleted by a
// `git branch -d/-D` segment.
func BranchDeleteTarget(seg Segment) (string, bool) {
	sub, rest := gitSubcommand(seg)
	if sub != "branch" || !HasDeleteBranchFlag(seg) {
		return "", false
	}
	return positionalAfter(rest, nil, 0)
}
