// Package reflection runs the post-turn memory reflection pass: after the
// main session's turn completes, a cheap model decides whether anything in
// the exchange is worth keeping in the workspace's long-lived MD files, and
// appends it if so.
package reflection

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo describes one workspace memory file, matching
// bat_types::memory::MemoryFileInfo.
type FileInfo struct {
	Name       string
	SizeBytes  int64
	ModifiedAt time.Time
}

// Store reads and writes the workspace's memory MD files.
type Store struct {
	workspace string
}

// NewStore roots a Store at workspace, creating the directory lazily on
// first write rather than at construction.
func NewStore(workspace string) *Store {
	return &Store{workspace: workspace}
}

// ListFiles returns every *.md file directly inside the workspace,
// alphabetically.
func (s *Store) ListFiles() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.workspace)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing memory files: %w", err)
	}

	var out []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}
		out = append(out, FileInfo{Name: entry.Name(), SizeBytes: info.Size(), ModifiedAt: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Read returns a memory file's contents, or "" if it doesn't exist yet.
func (s *Store) Read(name string) (string, error) {
	if err := validateFilename(name); err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(s.workspace, name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading %s: %w", name, err)
	}
	return string(data), nil
}

// Write overwrites a memory file's contents, keeping a .bak copy of
// whatever was there before.
func (s *Store) Write(name, content string) error {
	if err := validateFilename(name); err != nil {
		return err
	}
	if err := os.MkdirAll(s.workspace, 0o755); err != nil {
		return fmt.Errorf("creating workspace directory: %w", err)
	}
	path := filepath.Join(s.workspace, name)

	if _, err := os.Stat(path); err == nil {
		backup := filepath.Join(s.workspace, name+".bak")
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("backing up %s: %w", name, readErr)
		}
		if err := os.WriteFile(backup, data, 0o644); err != nil {
			return fmt.Errorf("writing backup for %s: %w", name, err)
		}
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// validateFilename rejects anything that could escape the workspace
// directory or isn't a memory file at all.
func validateFilename(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("invalid memory file name: %q", name)
	}
	if !strings.HasSuffix(name, ".md") {
		return fmt.Errorf("memory files must end with .md: %q", name)
	}
	return nil
}
