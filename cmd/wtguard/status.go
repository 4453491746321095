package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var flagStatusSession string

var (
	pathStyle   = lipgloss.NewStyle().Bold(true)
	lockedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	selfStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	freeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	orphanStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Faint(true)
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show worktrees, their locks and session claims",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt := newRuntime(ctx, "", flagStatusSession)
		if rt.cfg.ProjectRoot == "" {
			return fmt.Errorf("no git repository found; pass --root")
		}

		out := cmd.OutOrStdout()
		worktrees := rt.reg.ListWorktrees(ctx)
		if len(worktrees) == 0 {
			fmt.Fprintln(out, "No worktrees found.")
			return nil
		}

		for _, wt := range worktrees {
			branch := wt.Branch
			if branch == "" {
				branch = "(detached)"
			}

			state := freeStyle.Render("unlocked")
			switch {
			case wt.Locked && flagStatusSession != "" && rt.reg.IsSelfSessionWorktree(wt.Path, flagStatusSession):
				state = selfStyle.Render("locked (yours)")
			case wt.Locked:
				owner := wt.LockReason
				if marker, ok := rt.reg.ReadMarker(wt.Path); ok {
					owner = "session " + marker.SessionID
				}
				if owner == "" {
					owner = "unknown owner"
				}
				state = lockedStyle.Render("locked by " + owner)
			}

			fmt.Fprintf(out, "%s  %s  %s\n", pathStyle.Render(wt.Path), branch, state)
			for _, sign := range rt.reg.CheckActiveWorkSigns(ctx, wt.Path) {
				fmt.Fprintf(out, "    %s\n", warnStyle.Render(sign))
			}
		}

		if orphans := rt.reg.OrphanDirectories(ctx); len(orphans) > 0 {
			fmt.Fprintf(out, "\n%s\n", orphanStyle.Render("Orphan directories (on disk, unknown to git):"))
			for _, dir := range orphans {
				fmt.Fprintf(out, "  %s\n", dir)
			}
		}

		fmt.Fprintf(out, "\n%d worktrees under %s\n",
			len(worktrees), strings.TrimSpace(rt.reg.WorktreesRoot()))
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&flagStatusSession, "session", "",
		"highlight worktrees claimed by this session id")
}
