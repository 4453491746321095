// Package hook speaks the agent host's hook protocol: one JSON envelope on
// stdin, one decision object on stdout, one exchange per process. The
// decision is carried entirely in the JSON payload; exit status is not
// used, and a defect anywhere in evaluation degrades to an approve with a
// diagnostic note rather than a crash.
package hook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"

	"github.com/codefionn/wtguard/internal/config"
	"github.com/codefionn/wtguard/internal/guard"
	"github.com/codefionn/wtguard/internal/logger"
)

// EventPreToolUse is the only event the guard evaluates; every other event
// family is acknowledged with a plain continue.
const EventPreToolUse = "PreToolUse"

// maxInputBytes caps how much of stdin is read. A hook envelope is small;
// anything larger is hostile or broken.
const maxInputBytes = 1 << 20

// Input is the envelope the host writes to stdin.
type Input struct {
	SessionID      string    `json:"session_id"`
	TranscriptPath string    `json:"transcript_path,omitempty"`
	Cwd            string    `json:"cwd"`
	PermissionMode string    `json:"permission_mode,omitempty"`
	HookEventName  string    `json:"hook_event_name"`
	ToolName       string    `json:"tool_name"`
	ToolInput      ToolInput `json:"tool_input"`
}

// ToolInput is the Bash tool's input payload.
type ToolInput struct {
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
}

// Output is the decision object written to stdout.
type Output struct {
	Decision           string          `json:"decision,omitempty"`
	Reason             string          `json:"reason,omitempty"`
	Continue           *bool           `json:"continue,omitempty"`
	SystemMessage      string          `json:"systemMessage,omitempty"`
	HookSpecificOutput *SpecificOutput `json:"hookSpecificOutput,omitempty"`
}

// SpecificOutput carries the permission decision for PreToolUse events.
type SpecificOutput struct {
	HookEventName            string `json:"hookEventName"`
	PermissionDecision       string `json:"permissionDecision"`
	PermissionDecisionReason string `json:"permissionDecisionReason,omitempty"`
}

func approveOutput(reason, systemMessage string) Output {
	return Output{
		Decision:      "approve",
		Reason:        reason,
		SystemMessage: systemMessage,
		HookSpecificOutput: &SpecificOutput{
			HookEventName:            EventPreToolUse,
			PermissionDecision:       "allow",
			PermissionDecisionReason: reason,
		},
	}
}

func blockOutput(reason string) Output {
	return Output{
		Decision: "block",
		Reason:   reason,
		HookSpecificOutput: &SpecificOutput{
			HookEventName:            EventPreToolUse,
			PermissionDecision:       "deny",
			PermissionDecisionReason: reason,
		},
	}
}

func continueOutput() Output {
	cont := true
	return Output{Continue: &cont}
}

// Handler evaluates hook envelopes against the policy engine.
type Handler struct {
	eng *guard.Engine
}

// NewHandler creates a handler over the given engine.
func NewHandler(eng *guard.Engine) *Handler {
	return &Handler{eng: eng}
}

// Run reads one envelope from r and writes exactly one decision to w. The
// returned error only reports a failure to write the decision; evaluation
// itself never fails.
func (h *Handler) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	out := h.evaluate(ctx, r)
	return json.NewEncoder(w).Encode(out)
}

func (h *Handler) evaluate(ctx context.Context, r io.Reader) (out Output) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("panic during evaluation: %v\n%s", rec, debug.Stack())
			out = approveOutput(fmt.Sprintf("guard internal error, approving: %v", rec), "")
		}
	}()

	data, err := io.ReadAll(io.LimitReader(r, maxInputBytes))
	if err != nil {
		logger.Error("reading hook input: %v", err)
		return approveOutput("guard could not read its input, approving", "")
	}

	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		logger.Error("malformed hook input: %v", err)
		return approveOutput("guard received malformed input, approving", "")
	}

	if in.HookEventName != "" && in.HookEventName != EventPreToolUse {
		return continueOutput()
	}
	if in.ToolName != "Bash" || in.ToolInput.Command == "" {
		return approveOutput("", "")
	}

	dec := h.eng.Evaluate(ctx, guard.Request{
		Command:   in.ToolInput.Command,
		Cwd:       in.Cwd,
		SessionID: in.SessionID,
		Ancestors: sessionAncestors(),
	})

	if dec.Block {
		logger.Info("blocked for session %s: %s", in.SessionID, firstLine(dec.Reason))
		return blockOutput(dec.Reason)
	}

	if dec.CleanupPath != "" {
		h.eng.TryAutoCleanup(ctx, dec.CleanupPath)
	}
	return approveOutput("", strings.Join(dec.Warnings, "\n"))
}

// sessionAncestors returns the caller's ancestry chain. Fork sessions have
// no standard field in the hook envelope for this, so the session wrapper
// exports it through the environment.
func sessionAncestors() []string {
	raw := os.Getenv(config.EnvSessionAncestors)
	if raw == "" {
		return nil
	}
	var chain []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			chain = append(chain, id)
		}
	}
	return chain
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
