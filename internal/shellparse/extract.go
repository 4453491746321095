package shellparse

import "strings"

// Flags that consume a following value token, per command family. Walking
// past one of these skips its value so a numeric flag value is never misread
// as a positional argument (e.g. `gh pr merge --match-head-commit 42`).
var ghPrValueFlags = map[string]bool{
	"-R": true, "--repo": true,
	"-t": true, "--title": true,
	"-b": true, "--body": true,
	"-F": true, "--body-file": true,
	"-A": true, "--author": true,
	"--hostname":          true,
	"--match-head-commit": true,
	"--subject":           true,
	"-m": true, "--message": true,
}

var gitWorktreeValueFlags = map[string]bool{
	"--reason": true,
}

// gitSubcommand locates the git subcommand within a segment, skipping git's
// own value-consuming global flags (-C, -c, --git-dir, --work-tree, ...).
// Returns the subcommand and the remaining tokens after it.
func gitSubcommand(seg Segment) (string, []string) {
	if seg.Name != "git" {
		return "", nil
	}
	for i := 0; i < len(seg.Args); i++ {
		arg := seg.Args[i]
		if !strings.HasPrefix(arg, "-") {
			return arg, seg.Args[i+1:]
		}
		switch arg {
		case "-C", "-c", "--git-dir", "--work-tree", "--exec-path", "--namespace":
			i++
		}
		// --flag=value forms carry their value inline; nothing to skip.
	}
	return "", nil
}

// positionalAfter walks tokens, skipping flags, and returns the positional
// argument at position n (0-based). Flags listed in valueFlags consume the
// following token; all other flags consume nothing.
func positionalAfter(tokens []string, valueFlags map[string]bool, n int) (string, bool) {
	seen := 0
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok == "--" {
			for _, rest := range tokens[i+1:] {
				if seen == n {
					return rest, true
				}
				seen++
			}
			return "", false
		}
		if strings.HasPrefix(tok, "-") && len(tok) > 1 {
			if valueFlags[tok] {
				i++
			}
			continue
		}
		if seen == n {
			return tok, true
		}
		seen++
	}
	return "", false
}

// WorktreeTarget returns the positional path argument of a
// `git worktree remove|unlock|lock` segment.
func WorktreeTarget(seg Segment) (string, bool) {
	sub, rest := gitSubcommand(seg)
	if sub != "worktree" || len(rest) == 0 {
		return "", false
	}
	switch rest[0] {
	case "remove", "unlock", "lock":
		return positionalAfter(rest[1:], gitWorktreeValueFlags, 0)
	}
	return "", false
}

// GhPrMergeArg returns the PR selector (number, branch or URL) of a
// `gh pr merge` segment. ok is true for any gh pr merge, even with no
// selector (gh then targets the current branch).
func GhPrMergeArg(seg Segment) (arg string, ok bool) {
	if seg.Name != "gh" || len(seg.Args) < 2 || seg.Args[0] != "pr" || seg.Args[1] != "merge" {
		return "", false
	}
	arg, _ = positionalAfter(seg.Args[2:], ghPrValueFlags, 0)
	return arg, true
}

// RmTargets returns every non-flag argument of an rm segment. rm has no
// value-consuming flags worth modeling.
func RmTargets(seg Segment) []string {
	if seg.Name != "rm" {
		return nil
	}
	var targets []string
	for i := 0; i < len(seg.Args); i++ {
		arg := seg.Args[i]
		if arg == "--" {
			targets = append(targets, seg.Args[i+1:]...)
			break
		}
		if strings.HasPrefix(arg, "-") && len(arg) > 1 {
			continue
		}
		targets = append(targets, arg)
	}
	return targets
}

// HasPathLiteral reports whether raw contains path as a quote-exact literal:
// wholly single-quoted, wholly double-quoted, or fully unquoted with no
// adjacent quote character. A candidate with mismatched quote characters on
// its two sides ('p" or "p') never matches.
func HasPathLiteral(raw, path string) bool {
	if path == "" {
		return false
	}
	for from := 0; ; {
		i := strings.Index(raw[from:], path)
		if i < 0 {
			return false
		}
		i += from
		var before, after byte
		if i > 0 {
			before = raw[i-1]
		}
		if end := i + len(path); end < len(raw) {
			after = raw[end]
		}
		beforeQuote := before == '\'' || before == '"'
		afterQuote := after == '\'' || after == '"'
		switch {
		case beforeQuote && afterQuote && before == after:
			return true
		case !beforeQuote && !afterQuote:
			return true
		}
		from = i + 1
	}
}
