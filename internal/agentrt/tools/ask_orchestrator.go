package tools

import (
	"context"
	"encoding/json"
)

// AskOrchestrator lets a subagent ask its parent for clarification or
// guidance mid-task, optionally blocking until an answer arrives. Grounded
// on original_source's tools/ask_orchestrator.rs.
type AskOrchestrator struct {
	bridgeTool
}

func NewAskOrchestrator(bridge bridgeRequester) *AskOrchestrator {
	return &AskOrchestrator{bridgeTool{bridge: bridge, action: "ask_orchestrator"}}
}

func (t *AskOrchestrator) Name() string        { return "ask_orchestrator" }
func (t *AskOrchestrator) Description() string {
	return "Ask a question to your orchestrator. Use when you need clarification or guidance."
}

func (t *AskOrchestrator) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"question": {"type": "string", "description": "The question you want to ask the orchestrator"},
			"context": {"type": "string", "description": "Context about what you're doing and why you need this information"},
			"blocking": {"type": "boolean", "description": "Whether to wait for an answer before continuing (default: true)", "default": true}
		},
		"required": ["question", "context"]
	}`)
}

func (t *AskOrchestrator) Execute(ctx context.Context, input json.RawMessage) (string, bool, error) {
	if _, err := requireString(input, "question"); err != nil {
		return err.Error(), true, nil
	}
	if _, err := requireString(input, "context"); err != nil {
		return err.Error(), true, nil
	}
	_ = optionalBool(input, "blocking", true)

	raw, err := t.call(input)
	if err != nil {
		return "failed to ask orchestrator: " + err.Error(), true, nil
	}

	var result struct {
		Answer string `json:"answer"`
	}
	if err := decodeResult(raw, &result); err != nil {
		return "failed to ask orchestrator: " + err.Error(), true, nil
	}

	out, _ := json.Marshal(map[string]any{
		"status":  "answered",
		"answer":  result.Answer,
		"message": "Received answer from orchestrator",
	})
	return string(out), false, nil
}
