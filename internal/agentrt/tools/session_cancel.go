package tools

import (
	"context"
	"encoding/json"
)

// SessionCancel terminates a subagent and cleans it up. Grounded on
// original_source's tools/session_cancel.rs.
type SessionCancel struct {
	bridgeTool
}

func NewSessionCancel(bridge bridgeRequester) *SessionCancel {
	return &SessionCancel{bridgeTool{bridge: bridge, action: "cancel_subagent"}}
}

func (t *SessionCancel) Name() string        { return "session_cancel" }
func (t *SessionCancel) Description() string {
	return "Cancel a sub-agent and clean up. The sub-agent will be terminated."
}

func (t *SessionCancel) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {"session_key": {"type": "string", "description": "The session key of the sub-agent to cancel"}},
		"required": ["session_key"]
	}`)
}

func (t *SessionCancel) Execute(ctx context.Context, input json.RawMessage) (string, bool, error) {
	sessionKey, err := requireString(input, "session_key")
	if err != nil {
		return err.Error(), true, nil
	}
	if _, err := t.call(input); err != nil {
		return "failed to cancel sub-agent: " + err.Error(), true, nil
	}
	out, _ := json.Marshal(map[string]any{
		"status":      "cancelled",
		"session_key": sessionKey,
		"message":     "Sub-agent has been cancelled",
	})
	return string(out), false, nil
}
