package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ExecOutput reports a background process's accumulated stdout/stderr,
// running status, and exit code. Grounded on original_source's
// tools/exec_output.rs.
type ExecOutput struct {
	bridgeTool
}

func NewExecOutput(bridge bridgeRequester) *ExecOutput {
	return &ExecOutput{bridgeTool{bridge: bridge, action: "exec_get_output"}}
}

func (t *ExecOutput) Name() string        { return "exec_output" }
func (t *ExecOutput) Description() string {
	return "Get output from a background process started with exec_run. Returns stdout, stderr, " +
		"running status, and exit code."
}

func (t *ExecOutput) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {"session_id": {"type": "string", "description": "The session ID returned by exec_run"}},
		"required": ["session_id"]
	}`)
}

func (t *ExecOutput) Execute(ctx context.Context, input json.RawMessage) (string, bool, error) {
	if _, err := requireString(input, "session_id"); err != nil {
		return err.Error(), true, nil
	}

	raw, err := t.call(input)
	if err != nil {
		return err.Error(), true, nil
	}

	var result struct {
		Stdout    string `json:"stdout"`
		Stderr    string `json:"stderr"`
		IsRunning bool   `json:"is_running"`
		ExitCode  *int   `json:"exit_code"`
	}
	if err := decodeResult(raw, &result); err != nil {
		return err.Error(), true, nil
	}

	status := "Running"
	if !result.IsRunning {
		code := -1
		if result.ExitCode != nil {
			code = *result.ExitCode
		}
		status = fmt.Sprintf("Exited (code: %d)", code)
	}

	var out strings.Builder
	fmt.Fprintf(&out, "Status: %s\n", status)
	if result.Stdout != "" {
		out.WriteString("--- stdout ---\n")
		out.WriteString(result.Stdout)
	}
	if result.Stderr != "" {
		out.WriteString("\n--- stderr ---\n")
		out.WriteString(result.Stderr)
	}
	if result.Stdout == "" && result.Stderr == "" {
		out.WriteString("(no output yet)")
	}
	return out.String(), false, nil
}
