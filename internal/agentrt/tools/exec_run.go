package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ExecRun starts a managed shell command, either blocking for its output or
// returning a session ID immediately for background tracking. Grounded on
// original_source's tools/exec_run.rs.
type ExecRun struct {
	bridgeTool
}

func NewExecRun(bridge bridgeRequester) *ExecRun {
	return &ExecRun{bridgeTool{bridge: bridge, action: "exec_start"}}
}

func (t *ExecRun) Name() string        { return "exec_run" }
func (t *ExecRun) Description() string {
	return "Start a shell command. By default runs in foreground and waits for completion. " +
		"Set background=true for long-running tasks — returns a session_id you can use " +
		"with exec_output, exec_write, and exec_kill to manage the process."
}

func (t *ExecRun) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"command": {"type": "string", "description": "The shell command to execute"},
			"background": {"type": "boolean", "description": "If true, run in background and return session_id immediately. Default: false."},
			"workdir": {"type": "string", "description": "Working directory for the command (optional)"}
		},
		"required": ["command"]
	}`)
}

func (t *ExecRun) Execute(ctx context.Context, input json.RawMessage) (string, bool, error) {
	if _, err := requireString(input, "command"); err != nil {
		return err.Error(), true, nil
	}

	raw, err := t.call(input)
	if err != nil {
		return err.Error(), true, nil
	}

	var result struct {
		SessionID string `json:"session_id"`
		Stdout    string `json:"stdout"`
		Stderr    string `json:"stderr"`
		IsRunning bool   `json:"is_running"`
		ExitCode  *int   `json:"exit_code"`
		Started   bool   `json:"started"`
	}
	if err := decodeResult(raw, &result); err != nil {
		return err.Error(), true, nil
	}

	if result.Started {
		return fmt.Sprintf("Process started in background. Session ID: %s\n"+
			"Use exec_output to check progress, exec_write to send input, exec_kill to terminate.",
			result.SessionID), false, nil
	}

	var out strings.Builder
	if result.Stdout != "" {
		out.WriteString(result.Stdout)
	}
	if result.Stderr != "" {
		if out.Len() > 0 {
			out.WriteByte('\n')
		}
		out.WriteString("[stderr] ")
		out.WriteString(result.Stderr)
	}
	if result.ExitCode != nil && *result.ExitCode != 0 {
		fmt.Fprintf(&out, "\n(exit code %d)", *result.ExitCode)
	}
	if out.Len() == 0 {
		code := 0
		if result.ExitCode != nil {
			code = *result.ExitCode
		}
		return fmt.Sprintf("(no output, exit code %d)", code), false, nil
	}
	return out.String(), false, nil
}
