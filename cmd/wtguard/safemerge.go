package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var safeMergeCmd = &cobra.Command{
	Use:   "safe-merge <pr-number|branch|url>",
	Short: "Merge a PR from inside the worktree that owns its branch",
	Long: `safe-merge resolves the PR's head branch, finds the worktree that has it
checked out and runs the merge from there, so the merge cannot race work
happening in a different checkout of the same branch.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		selector := args[0]
		rt := newRuntime(ctx, "", "")

		pr, ok := rt.gh.ViewPR(ctx, selector)
		branch := selector
		if ok {
			branch = pr.HeadBranch
		}
		wt, found := rt.reg.WorktreeForBranch(ctx, branch)
		if !found {
			return fmt.Errorf("no worktree has branch %s checked out", branch)
		}

		if err := rt.eng.ExecuteSafeMerge(ctx, wt.Path, selector); err != nil {
			return fmt.Errorf("merge in %s failed: %w", wt.Path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Merged %s from %s\n", selector, wt.Path)
		return nil
	},
}
