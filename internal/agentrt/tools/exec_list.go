package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ExecList reports every managed background process and its status.
// Grounded on original_source's tools/exec_list.rs.
type ExecList struct {
	bridgeTool
}

func NewExecList(bridge bridgeRequester) *ExecList {
	return &ExecList{bridgeTool{bridge: bridge, action: "exec_list"}}
}

func (t *ExecList) Name() string        { return "exec_list" }
func (t *ExecList) Description() string { return "List all managed background processes with their status." }

func (t *ExecList) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func (t *ExecList) Execute(ctx context.Context, input json.RawMessage) (string, bool, error) {
	raw, err := t.call(input)
	if err != nil {
		return err.Error(), true, nil
	}

	var result struct {
		Processes []struct {
			SessionID string `json:"session_id"`
			Command   string `json:"command"`
			IsRunning bool   `json:"is_running"`
			ExitCode  *int   `json:"exit_code"`
		} `json:"processes"`
	}
	if err := decodeResult(raw, &result); err != nil {
		return err.Error(), true, nil
	}
	if len(result.Processes) == 0 {
		return "No managed processes.", false, nil
	}

	var out strings.Builder
	for _, p := range result.Processes {
		status := "running"
		if !p.IsRunning {
			code := -1
			if p.ExitCode != nil {
				code = *p.ExitCode
			}
			status = fmt.Sprintf("exited (code: %d)", code)
		}
		fmt.Fprintf(&out, "  %s | %s | %s\n", p.SessionID, status, p.Command)
	}
	return out.String(), false, nil
}
