package shellparse

import (
	"os"
	"path/filepath"
	"strings"
)

// cdTarget returns the directory a cd segment changes into, or "" when the
// segment is not a recognizable cd. Option flags on cd (-L, -P, -e and
// friends) are skipped without affecting target extraction. "cd -" yields
// the literal target "-".
func cdTarget(seg Segment) string {
	if seg.Name != "cd" {
		return ""
	}
	for i := 0; i < len(seg.Args); i++ {
		arg := seg.Args[i]
		if arg == "--" {
			if i+1 < len(seg.Args) {
				return seg.Args[i+1]
			}
			return ""
		}
		if arg == "-" {
			return "-"
		}
		if strings.HasPrefix(arg, "-") {
			continue
		}
		return arg
	}
	return ""
}

// CdTargetBefore returns the effective cd override for the segment at index
// idx, following scope propagation: a cd carries forward across &&, || and ;
// but not across a | boundary (pipeline components run in independent
// subshells), and never backward.
func (p ParsedCommand) CdTargetBefore(idx int) string {
	if idx < 0 || idx >= len(p.Segments) {
		return ""
	}
	target := ""
	for i := 0; i <= idx; i++ {
		if p.Segments[i].Op == OpPipe {
			target = ""
		}
		if i == idx {
			break
		}
		if t := cdTarget(p.Segments[i]); t != "" {
			target = t
		}
	}
	return target
}

// gitBaseFlag extracts an explicit base-directory flag from a git segment:
// -C <dir>, --work-tree=<dir> (or --work-tree <dir>), or --git-dir=<dir>.
// A --git-dir value ending in a literal ".git" component resolves to its
// parent; a value merely containing ".git" is returned unchanged.
func gitBaseFlag(seg Segment) string {
	if seg.Name != "git" {
		return ""
	}
	for i := 0; i < len(seg.Args); i++ {
		arg := seg.Args[i]
		switch {
		case arg == "-C":
			if i+1 < len(seg.Args) {
				return seg.Args[i+1]
			}
		case strings.HasPrefix(arg, "--work-tree="):
			return strings.TrimPrefix(arg, "--work-tree=")
		case arg == "--work-tree":
			if i+1 < len(seg.Args) {
				return seg.Args[i+1]
			}
		case strings.HasPrefix(arg, "--git-dir="):
			return gitDirParent(strings.TrimPrefix(arg, "--git-dir="))
		case arg == "--git-dir":
			if i+1 < len(seg.Args) {
				return gitDirParent(seg.Args[i+1])
			}
		}
	}
	return ""
}

func gitDirParent(dir string) string {
	if dir == ".git" {
		return "."
	}
	if strings.HasSuffix(dir, "/.git") || strings.HasSuffix(dir, string(os.PathSeparator)+".git") {
		return filepath.Dir(dir)
	}
	return dir
}

// BaseDir resolves the effective working directory of the segment at idx,
// in strict priority order: an explicit base-directory flag on the segment
// itself, then a cd target in scope, then the working directory the hook
// observed, then the process's own working directory as a last resort.
// A relative cd target is resolved against hookCwd. "cd -" cannot be
// resolved lexically and falls through to hookCwd.
func (p ParsedCommand) BaseDir(idx int, hookCwd string) string {
	if idx >= 0 && idx < len(p.Segments) {
		if dir := gitBaseFlag(p.Segments[idx]); dir != "" {
			return resolveAgainst(dir, hookCwd)
		}
	}
	if cd := p.CdTargetBefore(idx); cd != "" && cd != "-" {
		return resolveAgainst(cd, hookCwd)
	}
	if hookCwd != "" {
		return hookCwd
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// ResolveTarget joins a (possibly relative) target path onto a base
// directory and cleans the result.
func ResolveTarget(base, target string) string {
	if target == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Clean(filepath.Join(base, target))
}

func resolveAgainst(dir, base string) string {
	if filepath.IsAbs(dir) || base == "" {
		return filepath.Clean(dir)
	}
	return filepath.Clean(filepath.Join(base, dir))
}
