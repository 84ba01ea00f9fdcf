package tools

import (
	"context"
	"encoding/json"
)

// ExecWrite writes data to a background process's stdin. Grounded on
// original_source's tools/exec_write.rs.
type ExecWrite struct {
	bridgeTool
}

func NewExecWrite(bridge bridgeRequester) *ExecWrite {
	return &ExecWrite{bridgeTool{bridge: bridge, action: "exec_write_stdin"}}
}

func (t *ExecWrite) Name() string        { return "exec_write" }
func (t *ExecWrite) Description() string { return "Write data to the stdin of a running background process." }

func (t *ExecWrite) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"session_id": {"type": "string", "description": "The session ID of the background process"},
			"data": {"type": "string", "description": "Data to write to stdin (a newline is NOT automatically appended)"}
		},
		"required": ["session_id", "data"]
	}`)
}

func (t *ExecWrite) Execute(ctx context.Context, input json.RawMessage) (string, bool, error) {
	if _, err := requireString(input, "session_id"); err != nil {
		return err.Error(), true, nil
	}
	if _, err := requireString(input, "data"); err != nil {
		return err.Error(), true, nil
	}
	if _, err := t.call(input); err != nil {
		return err.Error(), true, nil
	}
	return "Data written to stdin", false, nil
}
