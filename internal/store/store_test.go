package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetOrCreateMainIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	a, err := s.GetOrCreateMain("claude-sonnet-4-5")
	require.NoError(t, err)
	b, err := s.GetOrCreateMain("claude-sonnet-4-5")
	require.NoError(t, err)
	require.Equal(t, a.ID, b.ID)
}

func TestAppendMessageOrdering(t *testing.T) {
	s := newTestStore(t)
	sess, err := s.GetOrCreateMain("m")
	require.NoError(t, err)

	_, err = s.AppendMessage(Message{SessionID: sess.ID, Role: RoleUser, Content: "first"})
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = s.AppendMessage(Message{SessionID: sess.ID, Role: RoleAssistant, Content: "second"})
	require.NoError(t, err)

	hist, err := s.GetHistory(sess.ID)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	require.Equal(t, "first", hist[0].Content)
	require.Equal(t, "second", hist[1].Content)
}

func TestToolCallResultPairing(t *testing.T) {
	s := newTestStore(t)
	sess, err := s.GetOrCreateMain("m")
	require.NoError(t, err)
	msg, err := s.AppendMessage(Message{SessionID: sess.ID, Role: RoleAssistant, Content: ""})
	require.NoError(t, err)

	tc, err := s.RecordToolCall(ToolCall{MessageID: msg.ID, SessionID: sess.ID, ToolName: "fs_read", InputJSON: `{"path":"a"}`})
	require.NoError(t, err)

	_, err = s.GetToolResult(tc.ID)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.RecordToolResult(ToolResult{ToolCallID: tc.ID, SessionID: sess.ID, Output: "ok"}))
	res, err := s.GetToolResult(tc.ID)
	require.NoError(t, err)
	require.Equal(t, "ok", res.Output)
	require.False(t, res.IsError)
}

func TestSessionStatusTransitions(t *testing.T) {
	s := newTestStore(t)
	sess, err := s.CreateSession(Session{Kind: KindSubagent, ParentID: "p", Model: "m"})
	require.NoError(t, err)
	require.Equal(t, StatusRunning, sess.Status)

	require.NoError(t, s.UpdateStatus(sess.ID, StatusWaitingForAnswer, ""))
	require.NoError(t, s.UpdateStatus(sess.ID, StatusRunning, ""))
	require.NoError(t, s.UpdateStatus(sess.ID, StatusCompleted, "finished the task"))

	err = s.UpdateStatus(sess.ID, StatusRunning, "")
	require.Error(t, err, "completed is terminal")

	done, err := s.GetSession(sess.ID)
	require.NoError(t, err)
	require.Equal(t, "finished the task", done.Summary)
}

func TestDeleteRejectsMainSession(t *testing.T) {
	s := newTestStore(t)
	main, err := s.GetOrCreateMain("m")
	require.NoError(t, err)

	err = s.Delete(main.ID)
	require.Error(t, err)
	require.Contains(t, err.Error(), "refusing to delete main session")
}

func TestDeleteRemovesSubagentSession(t *testing.T) {
	s := newTestStore(t)
	parent, err := s.GetOrCreateMain("m")
	require.NoError(t, err)
	child, err := s.CreateSession(Session{Kind: KindSubagent, ParentID: parent.ID, Label: "researcher", Model: "m"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(child.ID))

	_, err = s.GetSession(child.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRenameUpdatesLabel(t *testing.T) {
	s := newTestStore(t)
	sess, err := s.CreateSession(Session{Kind: KindSubagent, ParentID: "p", Label: "old", Model: "m"})
	require.NoError(t, err)

	require.NoError(t, s.Rename(sess.ID, "new-name"))

	renamed, err := s.GetSession(sess.ID)
	require.NoError(t, err)
	require.Equal(t, "new-name", renamed.Label)
}

func TestListMainReturnsOnlyMainSessions(t *testing.T) {
	s := newTestStore(t)
	main, err := s.GetOrCreateMain("m")
	require.NoError(t, err)
	_, err = s.CreateSession(Session{Kind: KindSubagent, ParentID: main.ID, Label: "child", Model: "m"})
	require.NoError(t, err)

	mains, err := s.ListMain()
	require.NoError(t, err)
	require.Len(t, mains, 1)
	require.Equal(t, main.ID, mains[0].ID)
}

func TestListSubagents(t *testing.T) {
	s := newTestStore(t)
	parent, err := s.GetOrCreateMain("m")
	require.NoError(t, err)
	_, err = s.CreateSession(Session{Kind: KindSubagent, ParentID: parent.ID, Label: "researcher", Model: "m"})
	require.NoError(t, err)
	_, err = s.CreateSession(Session{Kind: KindSubagent, ParentID: parent.ID, Label: "writer", Model: "m"})
	require.NoError(t, err)

	children, err := s.ListSubagents(parent.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
}

func TestObservationCoalescing(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordObservation("tool_use", "fs_read", "3", base))
	require.NoError(t, s.RecordObservation("tool_use", "fs_read", "4", base.Add(time.Minute)))

	obs, err := s.ListObservations("tool_use")
	require.NoError(t, err)
	require.Len(t, obs, 1)
	require.Equal(t, int64(2), obs[0].Count)
	require.Equal(t, "4", obs[0].Value)

	// Outside the coalescing window: a new row.
	require.NoError(t, s.RecordObservation("tool_use", "fs_read", "1", base.Add(2*time.Hour)))
	obs, err = s.ListObservations("tool_use")
	require.NoError(t, err)
	require.Len(t, obs, 2)
}

func TestAuditAppendAndQuery(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AppendAudit(AuditEntry{Level: AuditInfo, Category: AuditCategorySession, Event: "session_started", Summary: "main session started"})
	require.NoError(t, err)
	_, err = s.AppendAudit(AuditEntry{Level: AuditError, Category: AuditCategoryTool, Event: "tool_failed", Summary: "fs_read failed"})
	require.NoError(t, err)

	entries, err := s.QueryAudit(AuditFilter{Level: AuditError})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "tool_failed", entries[0].Event)

	stats, err := s.Stats()
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.Total)
	require.Equal(t, int64(1), stats.Error)
}
