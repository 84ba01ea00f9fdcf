// Package ipc implements the framed NDJSON protocol between the supervisor
// process and a per-turn agent child process.
package ipc

import "encoding/json"

// WireMessage is a tagged-union envelope: Type discriminates which struct
// Payload decodes into, following the original `#[serde(tag = "type")]`
// wire shape one-to-one.
type WireMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"-"`
}

// --- Gateway -> Agent ------------------------------------------------------

// WireToolCall and WireToolResult mirror bat_types::message::{ToolCall,
// ToolResult} for wire transport; internal/store's richer row types are
// mapped to/from these at the IPC boundary.
type WireToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

type WireToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error"`
}

// WireMessageEntry mirrors bat_types::message::Message for history replay
// in Init.
type WireMessageEntry struct {
	ID           string           `json:"id"`
	SessionID    string           `json:"session_id"`
	Role         string           `json:"role"`
	Content      string           `json:"content"`
	ToolCalls    []WireToolCall   `json:"tool_calls"`
	ToolResults  []WireToolResult `json:"tool_results"`
	CreatedAt    string           `json:"created_at"`
	TokenInput   *int64           `json:"token_input,omitempty"`
	TokenOutput  *int64           `json:"token_output,omitempty"`
}

// WirePathPolicy mirrors bat_types::policy::PathPolicy for wire transport.
type WirePathPolicy struct {
	Path        string `json:"path"`
	Access      string `json:"access"`
	Recursive   bool   `json:"recursive"`
	Description string `json:"description,omitempty"`
}

// Init is the first message the supervisor sends: everything the agent
// needs to run a turn in isolation. SessionKind/ParentSessionID/Label/Task
// are a SPEC_FULL addition over original_source's Init (which has no
// subagent concept) so that a spawned subagent's turn loop knows its own
// delegation context.
type Init struct {
	SessionID       string             `json:"session_id"`
	Model           string             `json:"model"`
	SystemPrompt    string             `json:"system_prompt"`
	History         []WireMessageEntry `json:"history"`
	PathPolicies    []WirePathPolicy   `json:"path_policies"`
	DisabledTools   []string           `json:"disabled_tools,omitempty"`
	SessionKind     string             `json:"session_kind,omitempty"`
	ParentSessionID string             `json:"parent_session_id,omitempty"`
	Label           string             `json:"label,omitempty"`
	Task            string             `json:"task,omitempty"`
}

// UserMessage delivers new user-authored content into a running turn.
type UserMessage struct {
	Content string `json:"content"`
}

// Cancel asks the agent to stop as soon as safely possible.
type Cancel struct{}

// ProcessResponse carries the gateway bridge's reply to an agent's earlier
// ProcessRequest. A SPEC_FULL addition (see AgentToGateway.ProcessRequest).
type ProcessResponse struct {
	RequestID string          `json:"request_id"`
	Result    json.RawMessage `json:"result"`
	Error     string          `json:"error,omitempty"`
}

// Answer delivers a human's (or orchestrator's) reply to a prior Question
// raised by a subagent. A SPEC_FULL addition.
type Answer struct {
	RequestID string `json:"request_id"`
	Content   string `json:"content"`
}

// --- Agent -> Gateway --------------------------------------------------------

// TextDelta streams one chunk of assistant text as it's generated.
type TextDelta struct {
	Content string `json:"content"`
}

// ToolCallStart announces a tool invocation the agent is about to run.
type ToolCallStart struct {
	ToolCall WireToolCall `json:"tool_call"`
}

// ToolCallResultMsg reports a finished tool invocation's outcome.
type ToolCallResultMsg struct {
	Result WireToolResult `json:"result"`
}

// TurnComplete signals the agent finished its turn and is about to exit.
type TurnComplete struct {
	Message WireMessageEntry `json:"message"`
}

// ErrorMsg reports a terminal failure for the turn.
type ErrorMsg struct {
	Message string `json:"message"`
}

// AuditLogMsg lets the agent relay a structured audit fact up to the
// supervisor's store, same shape as store.AuditEntry's wire-facing fields.
type AuditLogMsg struct {
	Level      string  `json:"level"`
	Category   string  `json:"category"`
	Event      string  `json:"event"`
	Summary    string  `json:"summary"`
	DetailJSON *string `json:"detail_json,omitempty"`
}

// ProcessRequest asks the supervisor to perform a privileged action on the
// agent's behalf and block until a ProcessResponse with a matching
// RequestID arrives. This is the gateway-bridge escape hatch (SPEC_FULL
// §6.6) and is a SPEC_FULL addition: original_source's tool bodies call
// into in-process ProcessAction variants directly, since a single Rust
// binary hosts both tool code and the action handlers; this spec splits
// agent and supervisor into separate processes, so the call must cross the
// wire.
type ProcessRequest struct {
	RequestID string          `json:"request_id"`
	Action    string          `json:"action"`
	Params    json.RawMessage `json:"params"`
}

// Question raises a human-in-the-loop ask-and-block request from a
// subagent up to its orchestrator. A SPEC_FULL addition, paired with
// Answer.
type Question struct {
	RequestID string `json:"request_id"`
	Prompt    string `json:"prompt"`
}

// Message type discriminators, matching the `type` tag values exactly.
const (
	TypeInit            = "Init"
	TypeUserMessage     = "UserMessage"
	TypeCancel          = "Cancel"
	TypeProcessResponse = "ProcessResponse"
	TypeAnswer          = "Answer"

	TypeTextDelta       = "TextDelta"
	TypeToolCallStart   = "ToolCallStart"
	TypeToolCallResult  = "ToolCallResult"
	TypeTurnComplete    = "TurnComplete"
	TypeError           = "Error"
	TypeAuditLog        = "AuditLog"
	TypeProcessRequest  = "ProcessRequest"
	TypeQuestion        = "Question"
)

// Encode wraps a typed payload into a tagged WireMessage ready for
// json.Marshal.
func Encode(msgType string, payload any) (WireMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return WireMessage{}, err
	}
	return WireMessage{Type: msgType, Payload: raw}, nil
}

// MarshalJSON flattens {type, ...payload fields} into one JSON object,
// matching serde's internally-tagged enum representation.
func (m WireMessage) MarshalJSON() ([]byte, error) {
	var fields map[string]json.RawMessage
	if len(m.Payload) > 0 {
		if err := json.Unmarshal(m.Payload, &fields); err != nil {
			return nil, err
		}
	} else {
		fields = map[string]json.RawMessage{}
	}
	typeJSON, err := json.Marshal(m.Type)
	if err != nil {
		return nil, err
	}
	fields["type"] = typeJSON

	out := map[string]json.RawMessage(fields)
	return json.Marshal(out)
}

// UnmarshalJSON splits {type, ...payload fields} back into Type and
// Payload (Payload keeps the whole object so callers can re-decode the
// concrete struct for their Type).
func (m *WireMessage) UnmarshalJSON(data []byte) error {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	m.Type = probe.Type
	m.Payload = data
	return nil
}
