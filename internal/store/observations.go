package store

import (
	"database/sql"
	"fmt"
	"time"
)

// coalesceWindow is how long a repeated (kind, key) observation increments
// the existing row's count instead of inserting a new one.
const coalesceWindow = time.Hour

// RecordObservation inserts or coalesces a behavioral fact. If a row with
// the same (kind, key) was last updated within coalesceWindow of now, its
// count is incremented and value replaced; otherwise a fresh row is
// inserted. now is taken once by the caller per SPEC_FULL.md §11.4.
func (s *Store) RecordObservation(kind, key, value string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id int64
	var updatedAt string
	row := s.db.QueryRow(`
		SELECT id, updated_at FROM observations
		WHERE kind = ? AND key = ? ORDER BY updated_at DESC LIMIT 1`, kind, key)
	err := row.Scan(&id, &updatedAt)
	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.Exec(`INSERT INTO observations (kind, key, value, count, updated_at)
			VALUES (?, ?, ?, 1, ?)`, kind, key, value, now.Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("inserting observation: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("looking up observation: %w", err)
	}

	last, _ := time.Parse(time.RFC3339Nano, updatedAt)
	if now.Sub(last) <= coalesceWindow {
		_, err = s.db.Exec(`UPDATE observations SET value = ?, count = count + 1, updated_at = ?
			WHERE id = ?`, value, now.Format(time.RFC3339Nano), id)
		if err != nil {
			return fmt.Errorf("updating observation: %w", err)
		}
		return nil
	}

	_, err = s.db.Exec(`INSERT INTO observations (kind, key, value, count, updated_at)
		VALUES (?, ?, ?, 1, ?)`, kind, key, value, now.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting observation: %w", err)
	}
	return nil
}

// ListObservations returns every observation of the given kind, most
// recently updated first. An empty kind returns all observations.
func (s *Store) ListObservations(kind string) ([]Observation, error) {
	q := `SELECT id, kind, key, value, count, updated_at FROM observations`
	var args []any
	if kind != "" {
		q += ` WHERE kind = ?`
		args = append(args, kind)
	}
	q += ` ORDER BY updated_at DESC`

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing observations: %w", err)
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		var o Observation
		var updated string
		if err := rows.Scan(&o.ID, &o.Kind, &o.Key, &o.Value, &o.Count, &updated); err != nil {
			return nil, fmt.Errorf("scanning observation: %w", err)
		}
		o.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, o)
	}
	return out, rows.Err()
}
