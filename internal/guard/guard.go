// Package guard applies the worktree ownership and lock policy to a parsed
// shell command and produces an approve/block decision. Evaluation is
// stateless per invocation: the only state is the worktree snapshot taken
// at decision time.
package guard

import (
	"fmt"
	"strings"
)

// Request carries everything known about the command under evaluation.
type Request struct {
	// Command is the raw shell command string.
	Command string
	// Cwd is the working directory the hook observed at invocation time.
	Cwd string
	// SessionID identifies the calling session. May be empty.
	SessionID string
	// Ancestors is the session's ancestry chain for fork sessions, most
	// recent ancestor first.
	Ancestors []string
}

// Decision is the outcome of evaluating one command.
type Decision struct {
	// Block denies the command. Reason then carries the remediation text.
	Block  bool
	Reason string
	// Warnings are advisory notes attached to an approve. They never
	// convert an approve into a block.
	Warnings []string
	// CleanupPath, when set on an approve, requests a best-effort removal
	// of a now-safe worktree after the decision is delivered.
	CleanupPath string
	// SafeMergePath and SafeMergeSelector, set on a blocked merge, name
	// the owning worktree the merge can safely run in instead.
	SafeMergePath     string
	SafeMergeSelector string
}

func approve() Decision { return Decision{} }

func block(cause, rationale string, steps ...string) Decision {
	var b strings.Builder
	b.WriteString(cause)
	b.WriteString("\n\n")
	b.WriteString(rationale)
	for i, step := range steps {
		fmt.Fprintf(&b, "\n%d. %s", i+1, step)
	}
	return Decision{Block: true, Reason: b.String()}
}

// merge folds an approve-shaped decision from one segment into the running
// result for the whole command.
func (d *Decision) merge(other Decision) {
	d.Warnings = append(d.Warnings, other.Warnings...)
	if d.CleanupPath == "" {
		d.CleanupPath = other.CleanupPath
	}
}
