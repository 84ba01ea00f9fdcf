package store

import "time"

// SessionKind distinguishes the single top-level conversation from a
// delegated sub-agent session.
type SessionKind string

const (
	KindMain     SessionKind = "main"
	KindSubagent SessionKind = "subagent"
)

// SessionStatus tracks a session's lifecycle. Subagent sessions use the
// fuller set (waiting_for_answer, paused, cancelled); main sessions only
// ever hold Running or Completed/Failed.
type SessionStatus string

const (
	StatusRunning          SessionStatus = "running"
	StatusWaitingForAnswer SessionStatus = "waiting_for_answer"
	StatusPaused           SessionStatus = "paused"
	StatusCompleted        SessionStatus = "completed"
	StatusFailed           SessionStatus = "failed"
	StatusCancelled        SessionStatus = "cancelled"
)

// validTransitions is the state machine from SPEC_FULL.md §6.12.
var validTransitions = map[SessionStatus][]SessionStatus{
	StatusRunning:          {StatusWaitingForAnswer, StatusPaused, StatusCompleted, StatusFailed, StatusCancelled},
	StatusWaitingForAnswer: {StatusRunning, StatusCancelled},
	StatusPaused:           {StatusRunning, StatusCancelled},
	StatusCompleted:        {},
	StatusFailed:           {},
	StatusCancelled:        {},
}

// CanTransition reports whether moving from s to next is a legal transition.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Session is a single conversation thread: the main session, or a
// subagent delegated from it.
type Session struct {
	ID           string
	Key          string
	Kind         SessionKind
	ParentID     string // empty for Kind == KindMain
	Label        string
	Task         string
	Summary      string // child assistant content once a subagent completes
	Model        string
	Status       SessionStatus
	InputTokens  int64
	OutputTokens int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Role identifies the speaker of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one turn of conversation content, ordered by CreatedAt within
// a session.
type Message struct {
	ID        string
	SessionID string
	Role      Role
	Content   string
	CreatedAt time.Time
}

// ToolCall is a single invocation an assistant message requested.
type ToolCall struct {
	ID        string
	MessageID string
	SessionID string
	ToolName  string
	InputJSON string
	CreatedAt time.Time
}

// ToolResult pairs 1:1 with the ToolCall it answers.
type ToolResult struct {
	ToolCallID string
	SessionID  string
	Output     string
	IsError    bool
	CreatedAt  time.Time
}

// AuditLevel mirrors the severities original_source's bat_types::audit
// defines.
type AuditLevel string

const (
	AuditInfo  AuditLevel = "info"
	AuditWarn  AuditLevel = "warn"
	AuditError AuditLevel = "error"
)

// AuditCategory groups audit entries by subsystem.
type AuditCategory string

const (
	AuditCategorySession AuditCategory = "session"
	AuditCategoryTool    AuditCategory = "tool"
	AuditCategoryProcess AuditCategory = "process"
	AuditCategorySandbox AuditCategory = "sandbox"
	AuditCategoryMemory  AuditCategory = "memory"
	AuditCategoryIPC     AuditCategory = "ipc"
)

// AuditEntry is a structured, queryable record of something the system did,
// independent of the human-readable zap log line emitted alongside it.
type AuditEntry struct {
	ID         int64
	Timestamp  time.Time
	SessionID  string // empty if not session-scoped
	Level      AuditLevel
	Category   AuditCategory
	Event      string
	Summary    string
	DetailJSON string // empty if no structured detail
}

// AuditFilter narrows a Query call; zero-value fields are unconstrained.
type AuditFilter struct {
	SessionID string
	Category  AuditCategory
	Level     AuditLevel
	Since     time.Time
	Limit     int
}

// Observation is a coalesced behavioral fact: "the agent invoked fs_read
// 14 times in the last hour" rather than 14 separate rows.
type Observation struct {
	ID        int64
	Kind      string
	Key       string
	Value     string
	Count     int64
	UpdatedAt time.Time
}
