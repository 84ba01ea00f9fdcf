package tools

import (
	"context"
	"encoding/json"
)

// SessionSpawn asks the supervisor to fork a new subagent session to work a
// task concurrently, returning immediately with the new session's key.
// Grounded on original_source's tools/session_spawn.rs.
type SessionSpawn struct {
	bridgeTool
}

func NewSessionSpawn(bridge bridgeRequester) *SessionSpawn {
	return &SessionSpawn{bridgeTool{bridge: bridge, action: "spawn_subagent"}}
}

func (t *SessionSpawn) Name() string        { return "session_spawn" }
func (t *SessionSpawn) Description() string {
	return "Spawn a background subagent to handle a task concurrently. Returns immediately " +
		"with a session key. The subagent runs independently and announces results when done."
}

func (t *SessionSpawn) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"task": {"type": "string", "description": "The task for the subagent to complete. Be specific and detailed."},
			"label": {"type": "string", "description": "Short label for this subagent (shown in UI). Defaults to first 40 chars of task."}
		},
		"required": ["task"]
	}`)
}

func (t *SessionSpawn) Execute(ctx context.Context, input json.RawMessage) (string, bool, error) {
	task, err := requireString(input, "task")
	if err != nil {
		return err.Error(), true, nil
	}
	label := optionalString(input, "label")
	if label == "" {
		label = truncate(task, 40)
	}

	raw, err := t.call(input)
	if err != nil {
		return "failed to spawn subagent: " + err.Error(), true, nil
	}

	var result struct {
		SessionKey string `json:"session_key"`
		SessionID  string `json:"session_id"`
	}
	if err := decodeResult(raw, &result); err != nil {
		return "failed to spawn subagent: " + err.Error(), true, nil
	}

	out, _ := json.Marshal(map[string]any{
		"status":      "spawned",
		"session_key": result.SessionKey,
		"session_id":  result.SessionID,
		"label":       label,
		"message":     "Subagent spawned and running in background. You'll receive a notification when it completes.",
	})
	return string(out), false, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
