package tools

import (
	"context"
	"encoding/json"
)

// SessionList reports every spawned subagent's task, label, status, and
// summary. Named session_list here (session_status in original_source's
// tools/session_status.rs) to match the operation name SPEC_FULL.md uses.
type SessionList struct {
	bridgeTool
}

func NewSessionList(bridge bridgeRequester) *SessionList {
	return &SessionList{bridgeTool{bridge: bridge, action: "list_subagents"}}
}

func (t *SessionList) Name() string { return "session_list" }
func (t *SessionList) Description() string {
	return "Get the status of all spawned subagents, including their task, label, status, and summary."
}

func (t *SessionList) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}, "required": []}`)
}

func (t *SessionList) Execute(ctx context.Context, input json.RawMessage) (string, bool, error) {
	raw, err := t.call(input)
	if err != nil {
		return "failed to list subagents: " + err.Error(), true, nil
	}

	var result struct {
		Subagents []json.RawMessage `json:"subagents"`
	}
	if err := decodeResult(raw, &result); err != nil {
		return "failed to list subagents: " + err.Error(), true, nil
	}
	if len(result.Subagents) == 0 {
		return "No subagents have been spawned.", false, nil
	}
	out, _ := json.Marshal(map[string]any{"subagents": result.Subagents})
	return string(out), false, nil
}
