package tools

import (
	"context"
	"encoding/json"
)

// SessionPause asks the supervisor to pause a running subagent after its
// current step. Grounded on original_source's tools/session_pause.rs.
type SessionPause struct {
	bridgeTool
}

func NewSessionPause(bridge bridgeRequester) *SessionPause {
	return &SessionPause{bridgeTool{bridge: bridge, action: "pause_subagent"}}
}

func (t *SessionPause) Name() string        { return "session_pause" }
func (t *SessionPause) Description() string {
	return "Pause a running sub-agent. The sub-agent will stop after its current step."
}

func (t *SessionPause) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {"session_key": {"type": "string", "description": "The session key of the sub-agent to pause"}},
		"required": ["session_key"]
	}`)
}

func (t *SessionPause) Execute(ctx context.Context, input json.RawMessage) (string, bool, error) {
	sessionKey, err := requireString(input, "session_key")
	if err != nil {
		return err.Error(), true, nil
	}
	if _, err := t.call(input); err != nil {
		return "failed to pause sub-agent: " + err.Error(), true, nil
	}
	out, _ := json.Marshal(map[string]any{
		"status":      "paused",
		"session_key": sessionKey,
		"message":     "Sub-agent has been paused",
	})
	return string(out), false, nil
}
