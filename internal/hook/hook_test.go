package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/wtguard/internal/config"
	"github.com/codefionn/wtguard/internal/ghcli"
	"github.com/codefionn/wtguard/internal/guard"
	"github.com/codefionn/wtguard/internal/worktree"
)

func newHandler(t *testing.T) (*Handler, string) {
	t.Helper()
	root := t.TempDir()
	wt42 := filepath.Join(root, ".worktrees", "issue-42")
	require.NoError(t, os.MkdirAll(wt42, 0755))

	porcelain := fmt.Sprintf(
		"worktree %s\nHEAD 1111111\nbranch refs/heads/main\n\n"+
			"worktree %s\nHEAD 2222222\nbranch refs/heads/issue-42\nlocked\n\n",
		root, wt42)
	run := &worktree.MockRunner{
		OutputFunc: func(ctx context.Context, dir, name string, args ...string) (string, error) {
			if name == "git" && strings.Contains(strings.Join(args, " "), "worktree list") {
				return porcelain, nil
			}
			return "", fmt.Errorf("exit status 1")
		},
	}
	reg := worktree.NewRegistry(run, worktree.Options{Root: root})
	require.NoError(t, reg.WriteMarker(wt42, worktree.SessionMarker{
		SessionID: "abc",
		CreatedAt: time.Now(),
	}))

	cfg := config.DefaultConfig()
	cfg.ProjectRoot = root
	eng := guard.New(reg, ghcli.NewClient(run, root, nil), cfg)
	return NewHandler(eng), root
}

func runHook(t *testing.T, h *Handler, input string) Output {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, h.Run(context.Background(), strings.NewReader(input), &buf))

	var out Output
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func envelope(sessionID, cwd, command string) string {
	in := Input{
		SessionID:     sessionID,
		Cwd:           cwd,
		HookEventName: EventPreToolUse,
		ToolName:      "Bash",
		ToolInput:     ToolInput{Command: command},
	}
	data, _ := json.Marshal(in)
	return string(data)
}

func TestRun_ApprovesHarmlessCommand(t *testing.T) {
	h, root := newHandler(t)
	out := runHook(t, h, envelope("xyz", root, "echo hello"))

	assert.Equal(t, "approve", out.Decision)
	require.NotNil(t, out.HookSpecificOutput)
	assert.Equal(t, "allow", out.HookSpecificOutput.PermissionDecision)
	assert.Equal(t, EventPreToolUse, out.HookSpecificOutput.HookEventName)
}

func TestRun_BlocksLockedWorktreeRemoval(t *testing.T) {
	h, root := newHandler(t)
	out := runHook(t, h, envelope("xyz", root, "git worktree remove .worktrees/issue-42"))

	assert.Equal(t, "block", out.Decision)
	require.NotNil(t, out.HookSpecificOutput)
	assert.Equal(t, "deny", out.HookSpecificOutput.PermissionDecision)
	assert.Contains(t, out.Reason, "issue-42")
	assert.Equal(t, out.Reason, out.HookSpecificOutput.PermissionDecisionReason)
}

func TestRun_OwningSessionAllowed(t *testing.T) {
	h, root := newHandler(t)
	out := runHook(t, h, envelope("abc", root, "git worktree remove .worktrees/issue-42"))
	assert.Equal(t, "approve", out.Decision)
}

func TestRun_AncestryFromEnvironment(t *testing.T) {
	h, root := newHandler(t)
	t.Setenv(config.EnvSessionAncestors, "abc, older-root")

	out := runHook(t, h, envelope("fork-1", root, "git worktree remove .worktrees/issue-42"))
	assert.Equal(t, "approve", out.Decision)
}

func TestRun_OtherEventsContinue(t *testing.T) {
	h, _ := newHandler(t)
	out := runHook(t, h, `{"hook_event_name":"PostToolUse","tool_name":"Bash"}`)

	assert.Empty(t, out.Decision)
	require.NotNil(t, out.Continue)
	assert.True(t, *out.Continue)
}

func TestRun_NonBashToolApproved(t *testing.T) {
	h, _ := newHandler(t)
	out := runHook(t, h, `{"hook_event_name":"PreToolUse","tool_name":"Write","tool_input":{}}`)
	assert.Equal(t, "approve", out.Decision)
}

func TestRun_MalformedInputApproves(t *testing.T) {
	h, _ := newHandler(t)
	out := runHook(t, h, `{"tool_name": `)

	assert.Equal(t, "approve", out.Decision)
	assert.Contains(t, out.Reason, "malformed")
}

func TestRun_EmptyInputApproves(t *testing.T) {
	h, _ := newHandler(t)
	out := runHook(t, h, "")
	assert.Equal(t, "approve", out.Decision)
}

func TestRun_PanicRecoversToApprove(t *testing.T) {
	// A nil engine panics on first use; the decision must still be a
	// well-formed approve.
	h := NewHandler(nil)
	out := runHook(t, h, envelope("xyz", "/repo", "git worktree remove .worktrees/issue-42"))

	assert.Equal(t, "approve", out.Decision)
	assert.Contains(t, out.Reason, "internal error")
}

func TestRun_AlwaysExactlyOneJSONObject(t *testing.T) {
	h, root := newHandler(t)
	var buf bytes.Buffer
	err := h.Run(context.Background(), strings.NewReader(envelope("xyz", root, "ls")), &buf)
	require.NoError(t, err)

	dec := json.NewDecoder(strings.NewReader(buf.String()))
	var first Output
	require.NoError(t, dec.Decode(&first))
	assert.False(t, dec.More())
}
