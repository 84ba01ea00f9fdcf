package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateSession inserts a new main or subagent session.
func (s *Store) CreateSession(sess Session) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sess.CreatedAt, sess.UpdatedAt = now, now
	if sess.Status == "" {
		sess.Status = StatusRunning
	}
	if sess.Kind == "" {
		sess.Kind = KindMain
	}

	_, err := s.db.Exec(`
		INSERT INTO sessions (id, key, kind, parent_id, label, task, summary, model, status,
			input_tokens, output_tokens, created_at, updated_at)
		VALUES (?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?, ?, 0, 0, ?, ?)`,
		sess.ID, sess.Key, sess.Kind, sess.ParentID, sess.Label, sess.Task, sess.Summary, sess.Model, sess.Status,
		sess.CreatedAt.Format(time.RFC3339Nano), sess.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Session{}, fmt.Errorf("creating session: %w", err)
	}
	return sess, nil
}

// GetOrCreateMain returns the single main session, creating it with the
// given default model if it does not yet exist.
func (s *Store) GetOrCreateMain(defaultModel string) (Session, error) {
	existing, err := s.GetSessionByKey("main")
	if err == nil {
		return existing, nil
	}
	if err != ErrNotFound {
		return Session{}, err
	}
	return s.CreateSession(Session{Key: "main", Kind: KindMain, Model: defaultModel})
}

// GetSession fetches a session by ID.
func (s *Store) GetSession(id string) (Session, error) {
	return s.scanSession(s.db.QueryRow(sessionSelect+" WHERE id = ?", id))
}

// GetSessionByKey fetches a session by its human-assigned key.
func (s *Store) GetSessionByKey(key string) (Session, error) {
	return s.scanSession(s.db.QueryRow(sessionSelect+" WHERE key = ?", key))
}

// ListSubagents returns every subagent session spawned from parentID,
// most recently created first.
func (s *Store) ListSubagents(parentID string) ([]Session, error) {
	rows, err := s.db.Query(sessionSelect+" WHERE parent_id = ? ORDER BY created_at DESC", parentID)
	if err != nil {
		return nil, fmt.Errorf("listing subagents: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := s.scanSessionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// ListMain returns every top-level (Kind == KindMain) session, most
// recently created first.
func (s *Store) ListMain() ([]Session, error) {
	rows, err := s.db.Query(sessionSelect+" WHERE kind = ? ORDER BY created_at DESC", KindMain)
	if err != nil {
		return nil, fmt.Errorf("listing main sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := s.scanSessionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Delete removes a session entirely. The main session may never be
// deleted.
func (s *Store) Delete(id string) error {
	sess, err := s.GetSession(id)
	if err != nil {
		return err
	}
	if sess.Kind == KindMain {
		return fmt.Errorf("store: refusing to delete main session %s", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Rename updates a session's human-visible label, following
// vanducng-goclaw/internal/sessions/manager.go's SetLabel.
func (s *Store) Rename(id, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE sessions SET label = NULLIF(?, ''), updated_at = ? WHERE id = ?`,
		label, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("renaming session: %w", err)
	}
	return nil
}

// UpdateStatus moves a session to next, validating the transition against
// the state machine (SPEC_FULL.md §6.12). summary is optional (pass "" to
// leave the stored summary untouched) and is set on subagent completion to
// the child's final assistant content, following WorkflowStore.UpdateStatus's
// status+message shape.
func (s *Store) UpdateStatus(id string, next SessionStatus, summary string) error {
	sess, err := s.GetSession(id)
	if err != nil {
		return err
	}
	if !sess.Status.CanTransition(next) {
		return fmt.Errorf("invalid session transition %s -> %s", sess.Status, next)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if summary != "" {
		_, err = s.db.Exec(`UPDATE sessions SET status = ?, summary = ?, updated_at = ? WHERE id = ?`,
			next, summary, time.Now().UTC().Format(time.RFC3339Nano), id)
	} else {
		_, err = s.db.Exec(`UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?`,
			next, time.Now().UTC().Format(time.RFC3339Nano), id)
	}
	if err != nil {
		return fmt.Errorf("updating session status: %w", err)
	}
	return nil
}

// UpdateTokenUsage adds the given input/output token deltas to a session's
// running totals.
func (s *Store) UpdateTokenUsage(id string, inputDelta, outputDelta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		UPDATE sessions SET input_tokens = input_tokens + ?, output_tokens = output_tokens + ?,
			updated_at = ? WHERE id = ?`,
		inputDelta, outputDelta, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("updating token usage: %w", err)
	}
	return nil
}

const sessionSelect = `
	SELECT id, key, kind, COALESCE(parent_id, ''), COALESCE(label, ''), COALESCE(task, ''),
		COALESCE(summary, ''), model, status, input_tokens, output_tokens, created_at, updated_at
	FROM sessions`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanSession(row *sql.Row) (Session, error) {
	return s.scanSessionRows(row)
}

func (s *Store) scanSessionRows(row rowScanner) (Session, error) {
	var sess Session
	var created, updated string
	err := row.Scan(&sess.ID, &sess.Key, &sess.Kind, &sess.ParentID, &sess.Label, &sess.Task,
		&sess.Summary, &sess.Model, &sess.Status, &sess.InputTokens, &sess.OutputTokens, &created, &updated)
	if err == sql.ErrNoRows {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("scanning session: %w", err)
	}
	sess.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	sess.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return sess, nil
}
