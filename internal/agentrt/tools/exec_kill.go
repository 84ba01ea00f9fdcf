package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// ExecKill terminates a running background process. Grounded on
// original_source's tools/exec_kill.rs.
type ExecKill struct {
	bridgeTool
}

func NewExecKill(bridge bridgeRequester) *ExecKill {
	return &ExecKill{bridgeTool{bridge: bridge, action: "exec_kill"}}
}

func (t *ExecKill) Name() string        { return "exec_kill" }
func (t *ExecKill) Description() string { return "Kill a running background process." }

func (t *ExecKill) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {"session_id": {"type": "string", "description": "The session ID of the process to kill"}},
		"required": ["session_id"]
	}`)
}

func (t *ExecKill) Execute(ctx context.Context, input json.RawMessage) (string, bool, error) {
	sessionID, err := requireString(input, "session_id")
	if err != nil {
		return err.Error(), true, nil
	}
	if _, err := t.call(input); err != nil {
		return err.Error(), true, nil
	}
	return fmt.Sprintf("Process %s killed", sessionID), false, nil
}
