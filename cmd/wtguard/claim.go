package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/codefionn/wtguard/internal/worktree"
)

var (
	flagClaimSession string
	flagClaimParents string
)

var claimCmd = &cobra.Command{
	Use:   "claim [worktree-path]",
	Short: "Claim a worktree for a session",
	Long: `claim writes the session marker into a worktree and locks it through
git, so other sessions' destructive commands on it are blocked until the
branch's PR merges or the claim is released.

Without a path the worktree containing the current directory is claimed.
Without --session a fresh id is generated and printed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := flagClaimSession
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		rt := newRuntime(cmd.Context(), "", sessionID)

		var wtPath string
		if len(args) == 1 {
			wtPath, _ = filepath.Abs(args[0])
		} else {
			cur, ok := rt.reg.CurrentWorktree(cmd.Context(), ".")
			if !ok {
				return fmt.Errorf("not inside a git worktree; pass a path")
			}
			wtPath = cur.Path
		}

		marker := worktree.SessionMarker{
			SessionID: sessionID,
			CreatedAt: time.Now().UTC(),
			ParentIDs: splitIDs(flagClaimParents),
		}
		if err := rt.reg.WriteMarker(wtPath, marker); err != nil {
			return fmt.Errorf("writing session marker: %w", err)
		}

		// The lock is what other sessions' guards actually enforce on; the
		// marker only proves which session holds it.
		reason := "claimed by session " + sessionID
		if _, err := rt.local.Output(cmd.Context(), "",
			"git", "-C", rt.cfg.ProjectRoot, "worktree", "lock", "--reason", reason, wtPath); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: git worktree lock failed: %v\n", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Claimed %s for session %s\n", wtPath, sessionID)
		return nil
	},
}

func init() {
	claimCmd.Flags().StringVar(&flagClaimSession, "session", "", "session id (default: generated)")
	claimCmd.Flags().StringVar(&flagClaimParents, "parents", "",
		"comma-separated ancestor session ids for fork sessions")
}

func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
