package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codefionn/wtguard/internal/hook"
)

var flagSettings string

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Run or manage the Claude Code hook integration",
}

var hookRunCmd = &cobra.Command{
	Use:    "pre-tool-use",
	Short:  "Evaluate one PreToolUse envelope from stdin (called by Claude Code)",
	Args:   cobra.NoArgs,
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := io.ReadAll(io.LimitReader(os.Stdin, 1<<20))
		if err != nil {
			data = nil
		}
		// The session id keys the merged-PR cache and the cwd seeds root
		// discovery, so peek at them before full evaluation.
		var peek struct {
			SessionID string `json:"session_id"`
			Cwd       string `json:"cwd"`
		}
		_ = json.Unmarshal(data, &peek)

		rt := newRuntime(cmd.Context(), peek.Cwd, peek.SessionID)
		return hook.NewHandler(rt.eng).Run(cmd.Context(), bytes.NewReader(data), os.Stdout)
	},
}

var hookInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Register the guard as a PreToolUse hook in Claude Code settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newRuntime(cmd.Context(), "", "")
		path, err := settingsPath(rt.cfg.ProjectRoot)
		if err != nil {
			return err
		}
		changed, err := installHook(path)
		if err != nil {
			return err
		}
		if changed {
			fmt.Fprintf(cmd.OutOrStdout(), "Installed PreToolUse hook in %s\n", path)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Hook already installed in %s\n", path)
		}
		return nil
	},
}

var hookUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the guard hook from Claude Code settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newRuntime(cmd.Context(), "", "")
		path, err := settingsPath(rt.cfg.ProjectRoot)
		if err != nil {
			return err
		}
		changed, err := uninstallHook(path)
		if err != nil {
			return err
		}
		if changed {
			fmt.Fprintf(cmd.OutOrStdout(), "Removed hook from %s\n", path)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "No hook found in %s\n", path)
		}
		return nil
	},
}

func init() {
	hookCmd.PersistentFlags().StringVar(&flagSettings, "settings", "",
		"Claude settings file (default: <project>/.claude/settings.json)")
	hookCmd.AddCommand(hookRunCmd, hookInstallCmd, hookUninstallCmd)
}

func settingsPath(projectRoot string) (string, error) {
	if flagSettings != "" {
		return flagSettings, nil
	}
	if projectRoot == "" {
		return "", fmt.Errorf("no project root found; pass --root or --settings")
	}
	return filepath.Join(projectRoot, ".claude", "settings.json"), nil
}

// hookCommand is the shell command Claude Code will run for each Bash
// invocation.
func hookCommand() string {
	exe, err := os.Executable()
	if err != nil {
		exe = "wtguard"
	}
	return exe + " hook pre-tool-use"
}

// installHook adds the guard's PreToolUse group to the settings file,
// preserving every other setting and any existing hook groups. Returns
// false when the guard is already registered.
func installHook(path string) (bool, error) {
	settings, err := readSettings(path)
	if err != nil {
		return false, err
	}

	hooks, _ := settings["hooks"].(map[string]any)
	if hooks == nil {
		hooks = map[string]any{}
	}
	groups, _ := hooks["PreToolUse"].([]any)
	for _, g := range groups {
		if groupIsOurs(g) {
			return false, nil
		}
	}

	groups = append(groups, map[string]any{
		"matcher": "Bash",
		"hooks": []any{map[string]any{
			"type":    "command",
			"command": hookCommand(),
			"timeout": 30,
		}},
	})
	hooks["PreToolUse"] = groups
	settings["hooks"] = hooks
	return true, writeSettings(path, settings)
}

// uninstallHook removes every PreToolUse group that points at this guard.
func uninstallHook(path string) (bool, error) {
	settings, err := readSettings(path)
	if err != nil {
		return false, err
	}
	hooks, _ := settings["hooks"].(map[string]any)
	groups, _ := hooks["PreToolUse"].([]any)
	if len(groups) == 0 {
		return false, nil
	}

	var kept []any
	for _, g := range groups {
		if !groupIsOurs(g) {
			kept = append(kept, g)
		}
	}
	if len(kept) == len(groups) {
		return false, nil
	}
	if len(kept) > 0 {
		hooks["PreToolUse"] = kept
	} else {
		delete(hooks, "PreToolUse")
	}
	return true, writeSettings(path, settings)
}

// groupIsOurs reports whether a hook group invokes wtguard.
func groupIsOurs(group any) bool {
	g, ok := group.(map[string]any)
	if !ok {
		return false
	}
	entries, _ := g["hooks"].([]any)
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		if cmdStr, _ := entry["command"].(string); strings.Contains(cmdStr, "wtguard") {
			return true
		}
	}
	return false
}

func readSettings(path string) (map[string]any, error) {
	settings := map[string]any{}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return settings, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return settings, nil
}

func writeSettings(path string, settings map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
