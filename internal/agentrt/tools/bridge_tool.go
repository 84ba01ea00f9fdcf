package tools

import (
	"encoding/json"
	"fmt"
)

// bridgeRequester is the narrow slice of agentrt.Bridge a tool needs: ask
// the supervisor to perform an action and block for its result. Kept as an
// interface here (rather than importing agentrt directly) to avoid an
// import cycle between agentrt and agentrt/tools.
type bridgeRequester interface {
	Request(action string, params json.RawMessage) (json.RawMessage, error)
}

// bridgeTool is the common shape of every tool whose execution crosses the
// gateway bridge: marshal input into a ProcessAction's params, block for
// the ProcessResponse, then let the caller map the raw result into the
// tool's own textual output.
type bridgeTool struct {
	bridge bridgeRequester
	action string
}

func (t bridgeTool) call(input json.RawMessage) (json.RawMessage, error) {
	return t.bridge.Request(t.action, input)
}

// decodeResult is a small helper most tools use to unmarshal the bridge's
// json.RawMessage result into a typed struct.
func decodeResult(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return fmt.Errorf("empty result from bridge")
	}
	return json.Unmarshal(raw, out)
}

func requireString(input json.RawMessage, field string) (string, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(input, &probe); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	raw, ok := probe[field]
	if !ok {
		return "", fmt.Errorf("missing required '%s' parameter", field)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("'%s' must be a string", field)
	}
	return s, nil
}

func optionalString(input json.RawMessage, field string) string {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(input, &probe); err != nil {
		return ""
	}
	raw, ok := probe[field]
	if !ok {
		return ""
	}
	var s string
	_ = json.Unmarshal(raw, &s)
	return s
}

func optionalBool(input json.RawMessage, field string, def bool) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(input, &probe); err != nil {
		return def
	}
	raw, ok := probe[field]
	if !ok {
		return def
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return def
	}
	return b
}
