package worktree

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// Runner executes an external command in a directory and returns its
// trimmed stdout. Implementations apply their own timeout budget.
type Runner interface {
	Output(ctx context.Context, dir, name string, args ...string) (string, error)
}

// ExecRunner runs commands through os/exec with a fixed timeout budget.
// Budgets are tiered by expected cost; registry queries are all local and
// use the local tier.
type ExecRunner struct {
	Timeout time.Duration
}

// Output runs the command with the runner's timeout applied on top of ctx.
func (r ExecRunner) Output(ctx context.Context, dir, name string, args ...string) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
