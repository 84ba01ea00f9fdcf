package tools

import (
	"context"
	"encoding/json"
)

// SessionAnswer delivers a human/orchestrator's answer to a pending
// question a subagent raised through ask_orchestrator. Grounded on
// original_source's tools/session_answer.rs.
type SessionAnswer struct {
	bridgeTool
}

func NewSessionAnswer(bridge bridgeRequester) *SessionAnswer {
	return &SessionAnswer{bridgeTool{bridge: bridge, action: "answer_subagent"}}
}

func (t *SessionAnswer) Name() string        { return "session_answer" }
func (t *SessionAnswer) Description() string {
	return "Answer a pending question from a sub-agent. Use the session_key to identify which sub-agent to answer."
}

func (t *SessionAnswer) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"session_key": {"type": "string", "description": "The session key of the sub-agent that asked the question"},
			"answer": {"type": "string", "description": "Your answer to the sub-agent's question"}
		},
		"required": ["session_key", "answer"]
	}`)
}

func (t *SessionAnswer) Execute(ctx context.Context, input json.RawMessage) (string, bool, error) {
	sessionKey, err := requireString(input, "session_key")
	if err != nil {
		return err.Error(), true, nil
	}
	answer, err := requireString(input, "answer")
	if err != nil {
		return err.Error(), true, nil
	}
	if _, err := t.call(input); err != nil {
		return "failed to deliver answer: " + err.Error(), true, nil
	}
	out, _ := json.Marshal(map[string]any{
		"status":      "answered",
		"session_key": sessionKey,
		"message":     "Answer sent to sub-agent " + sessionKey + ": " + answer,
	})
	return string(out), false, nil
}
