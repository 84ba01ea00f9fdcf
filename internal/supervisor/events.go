package supervisor

import "github.com/nestmesh/nest/internal/ipc"

// EventKind discriminates what a TurnEvent is reporting.
type EventKind string

const (
	EventTextDelta     EventKind = "text_delta"
	EventToolCallStart EventKind = "tool_call_start"
	EventToolCallResult EventKind = "tool_call_result"
	EventTurnComplete  EventKind = "turn_complete"
	EventError         EventKind = "error"
	EventQuestion      EventKind = "question"
)

// TurnEvent is published on the supervisor's event bus for every
// noteworthy thing that happens during a turn, so a UI or CLI surface can
// subscribe without being wired into RunTurn itself.
type TurnEvent struct {
	Kind       EventKind
	SessionID  string
	SessionKey string

	Text       string            // TextDelta content, or Error message
	ToolCall   *ipc.WireToolCall // ToolCallStart
	ToolResult *ipc.WireToolResult // ToolCallResult

	// Question/answer correlation, populated for EventQuestion.
	RequestID string
	Context   string
}
