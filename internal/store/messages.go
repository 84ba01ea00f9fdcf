package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AppendMessage inserts a message, assigning it an ID and timestamp if
// unset. Messages are ordered by CreatedAt within a session, so callers
// must append in conversation order.
func (s *Store) AppendMessage(msg Message) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`INSERT INTO messages (id, session_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, msg.Role, msg.Content, msg.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Message{}, fmt.Errorf("appending message: %w", err)
	}
	return msg, nil
}

// GetHistory returns every message for a session in creation order.
func (s *Store) GetHistory(sessionID string) ([]Message, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, role, content, created_at FROM messages
		WHERE session_id = ? ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("getting history: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var created string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &created); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, m)
	}
	return out, rows.Err()
}

// RecordToolCall inserts a tool call tied to the assistant message that
// requested it.
func (s *Store) RecordToolCall(tc ToolCall) (ToolCall, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tc.ID == "" {
		tc.ID = uuid.NewString()
	}
	if tc.CreatedAt.IsZero() {
		tc.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`INSERT INTO tool_calls (id, message_id, session_id, tool_name, input_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		tc.ID, tc.MessageID, tc.SessionID, tc.ToolName, tc.InputJSON, tc.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return ToolCall{}, fmt.Errorf("recording tool call: %w", err)
	}
	return tc, nil
}

// RecordToolResult stores the 1:1 result for a prior tool call.
func (s *Store) RecordToolResult(tr ToolResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tr.CreatedAt.IsZero() {
		tr.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`INSERT INTO tool_results (tool_call_id, session_id, output, is_error, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		tr.ToolCallID, tr.SessionID, tr.Output, tr.IsError, tr.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("recording tool result: %w", err)
	}
	return nil
}

// GetToolResult fetches the result paired with a tool call, if the tool has
// finished running.
func (s *Store) GetToolResult(toolCallID string) (ToolResult, error) {
	var tr ToolResult
	var created string
	row := s.db.QueryRow(`SELECT tool_call_id, session_id, output, is_error, created_at
		FROM tool_results WHERE tool_call_id = ?`, toolCallID)
	err := row.Scan(&tr.ToolCallID, &tr.SessionID, &tr.Output, &tr.IsError, &created)
	if err == sql.ErrNoRows {
		return ToolResult{}, ErrNotFound
	}
	if err != nil {
		return ToolResult{}, fmt.Errorf("scanning tool result: %w", err)
	}
	tr.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return tr, nil
}

// GetToolCallsForMessage returns every tool call an assistant message
// requested, in the order they were recorded. Used to replay a session's
// history onto a freshly spawned agent process with its tool calls intact.
func (s *Store) GetToolCallsForMessage(messageID string) ([]ToolCall, error) {
	rows, err := s.db.Query(`
		SELECT id, message_id, session_id, tool_name, input_json, created_at
		FROM tool_calls WHERE message_id = ? ORDER BY created_at ASC`, messageID)
	if err != nil {
		return nil, fmt.Errorf("getting tool calls: %w", err)
	}
	defer rows.Close()

	var out []ToolCall
	for rows.Next() {
		var tc ToolCall
		var created string
		if err := rows.Scan(&tc.ID, &tc.MessageID, &tc.SessionID, &tc.ToolName, &tc.InputJSON, &created); err != nil {
			return nil, fmt.Errorf("scanning tool call: %w", err)
		}
		tc.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, tc)
	}
	return out, rows.Err()
}
