package store

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/nestmesh/nest/internal/pathpolicy"
)

// SavePolicy upserts an operator-configured path policy.
func (s *Store) SavePolicy(p pathpolicy.Policy, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}
	_, err := s.db.Exec(`
		INSERT INTO path_policies (id, path, access, recursive, description)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET path = excluded.path, access = excluded.access,
			recursive = excluded.recursive, description = excluded.description`,
		id, p.Path, string(p.Access), p.Recursive, p.Description)
	if err != nil {
		return "", fmt.Errorf("saving path policy: %w", err)
	}
	return id, nil
}

// LoadPolicies returns every configured path policy.
func (s *Store) LoadPolicies() ([]pathpolicy.Policy, error) {
	rows, err := s.db.Query(`SELECT path, access, recursive, COALESCE(description, '') FROM path_policies`)
	if err != nil {
		return nil, fmt.Errorf("loading path policies: %w", err)
	}
	defer rows.Close()

	var out []pathpolicy.Policy
	for rows.Next() {
		var p pathpolicy.Policy
		var access string
		if err := rows.Scan(&p.Path, &access, &p.Recursive, &p.Description); err != nil {
			return nil, fmt.Errorf("scanning path policy: %w", err)
		}
		p.Access = pathpolicy.AccessLevel(access)
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeletePolicy removes a path policy by ID.
func (s *Store) DeletePolicy(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM path_policies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting path policy: %w", err)
	}
	return nil
}
