package store

import (
	"fmt"
	"strings"
	"time"
)

// AppendAudit inserts a structured audit entry, stamping the timestamp if
// unset. This is distinct from (but typically called alongside) a zap log
// line — the audit log is queryable, the zap line is for operators tailing
// output live.
func (s *Store) AppendAudit(e AuditEntry) (AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	res, err := s.db.Exec(`
		INSERT INTO audit_log (ts, session_id, level, category, event, summary, detail_json)
		VALUES (?, NULLIF(?, ''), ?, ?, ?, ?, NULLIF(?, ''))`,
		e.Timestamp.Format(time.RFC3339Nano), e.SessionID, e.Level, e.Category, e.Event, e.Summary, e.DetailJSON)
	if err != nil {
		return AuditEntry{}, fmt.Errorf("appending audit entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return AuditEntry{}, fmt.Errorf("reading audit entry id: %w", err)
	}
	e.ID = id
	return e, nil
}

// QueryAudit returns entries matching filter, most recent first.
func (s *Store) QueryAudit(filter AuditFilter) ([]AuditEntry, error) {
	var where []string
	var args []any

	if filter.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Level != "" {
		where = append(where, "level = ?")
		args = append(args, filter.Level)
	}
	if !filter.Since.IsZero() {
		where = append(where, "ts >= ?")
		args = append(args, filter.Since.Format(time.RFC3339Nano))
	}

	q := `SELECT id, ts, COALESCE(session_id, ''), level, category, event, summary, COALESCE(detail_json, '')
		FROM audit_log`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY ts DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	q += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var ts string
		if err := rows.Scan(&e.ID, &ts, &e.SessionID, &e.Level, &e.Category, &e.Event, &e.Summary, &e.DetailJSON); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

// AuditStats summarizes counts per level across the whole log, matching
// bat_types::audit::AuditStats.
type AuditStats struct {
	Total int64
	Info  int64
	Warn  int64
	Error int64
}

// Stats computes aggregate audit counts.
func (s *Store) Stats() (AuditStats, error) {
	var st AuditStats
	row := s.db.QueryRow(`
		SELECT COUNT(*),
			SUM(CASE WHEN level = 'info' THEN 1 ELSE 0 END),
			SUM(CASE WHEN level = 'warn' THEN 1 ELSE 0 END),
			SUM(CASE WHEN level = 'error' THEN 1 ELSE 0 END)
		FROM audit_log`)
	var info, warn, errc *int64
	if err := row.Scan(&st.Total, &info, &warn, &errc); err != nil {
		return AuditStats{}, fmt.Errorf("computing audit stats: %w", err)
	}
	if info != nil {
		st.Info = *info
	}
	if warn != nil {
		st.Warn = *warn
	}
	if errc != nil {
		st.Error = *errc
	}
	return st, nil
}
