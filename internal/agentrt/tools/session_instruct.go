package tools

import (
	"context"
	"encoding/json"
)

// SessionInstruct sends new instructions to a running subagent mid-task.
// Grounded on original_source's tools/session_instruct.rs.
type SessionInstruct struct {
	bridgeTool
}

func NewSessionInstruct(bridge bridgeRequester) *SessionInstruct {
	return &SessionInstruct{bridgeTool{bridge: bridge, action: "instruct_subagent"}}
}

func (t *SessionInstruct) Name() string        { return "session_instruct" }
func (t *SessionInstruct) Description() string {
	return "Send new instructions to a running sub-agent mid-task."
}

func (t *SessionInstruct) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"session_key": {"type": "string", "description": "The session key of the sub-agent to instruct"},
			"instruction": {"type": "string", "description": "The instruction to send to the sub-agent"}
		},
		"required": ["session_key", "instruction"]
	}`)
}

func (t *SessionInstruct) Execute(ctx context.Context, input json.RawMessage) (string, bool, error) {
	sessionKey, err := requireString(input, "session_key")
	if err != nil {
		return err.Error(), true, nil
	}
	instruction, err := requireString(input, "instruction")
	if err != nil {
		return err.Error(), true, nil
	}
	if _, err := t.call(input); err != nil {
		return "failed to instruct sub-agent: " + err.Error(), true, nil
	}
	out, _ := json.Marshal(map[string]any{
		"status":      "instructed",
		"session_key": sessionKey,
		"instruction": instruction,
		"message":     "Instruction sent to sub-agent",
	})
	return string(out), false, nil
}
