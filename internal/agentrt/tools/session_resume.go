package tools

import (
	"context"
	"encoding/json"
)

// SessionResume asks the supervisor to resume a paused subagent, optionally
// with new instructions. Grounded on original_source's tools/session_resume.rs.
type SessionResume struct {
	bridgeTool
}

func NewSessionResume(bridge bridgeRequester) *SessionResume {
	return &SessionResume{bridgeTool{bridge: bridge, action: "resume_subagent"}}
}

func (t *SessionResume) Name() string        { return "session_resume" }
func (t *SessionResume) Description() string {
	return "Resume a paused sub-agent, optionally with new instructions."
}

func (t *SessionResume) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"session_key": {"type": "string", "description": "The session key of the sub-agent to resume"},
			"instructions": {"type": "string", "description": "Optional new instructions to send when resuming"}
		},
		"required": ["session_key"]
	}`)
}

func (t *SessionResume) Execute(ctx context.Context, input json.RawMessage) (string, bool, error) {
	sessionKey, err := requireString(input, "session_key")
	if err != nil {
		return err.Error(), true, nil
	}
	if _, err := t.call(input); err != nil {
		return "failed to resume sub-agent: " + err.Error(), true, nil
	}
	out, _ := json.Marshal(map[string]any{
		"status":      "resumed",
		"session_key": sessionKey,
		"message":     "Sub-agent has been resumed",
	})
	return string(out), false, nil
}
