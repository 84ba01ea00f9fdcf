package reflection

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteThenReadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	require.NoError(t, store.Write("MEMORY.md", "# Memory\n\n- likes terse commits\n"))
	content, err := store.Read("MEMORY.md")
	require.NoError(t, err)
	require.Equal(t, "# Memory\n\n- likes terse commits\n", content)
}

func TestWriteBacksUpExistingFile(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	require.NoError(t, store.Write("MEMORY.md", "first"))
	require.NoError(t, store.Write("MEMORY.md", "second"))

	backup, err := os.ReadFile(filepath.Join(dir, "MEMORY.md.bak"))
	require.NoError(t, err)
	require.Equal(t, "first", string(backup))
}

func TestReadMissingFileReturnsEmptyNotError(t *testing.T) {
	store := NewStore(t.TempDir())
	content, err := store.Read("MEMORY.md")
	require.NoError(t, err)
	require.Empty(t, content)
}

func TestWriteRejectsPathTraversal(t *testing.T) {
	store := NewStore(t.TempDir())
	require.Error(t, store.Write("../escape.md", "x"))
	require.Error(t, store.Write("notes.txt", "x"))
	require.Error(t, store.Write("", "x"))
}

func TestListFilesOnlyReturnsMarkdown(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	require.NoError(t, store.Write("MEMORY.md", "a"))
	require.NoError(t, store.Write("PATTERNS.md", "b"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("c"), 0o644))

	files, err := store.ListFiles()
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, "MEMORY.md", files[0].Name)
	require.Equal(t, "PATTERNS.md", files[1].Name)
}

func TestListFilesOnMissingWorkspaceIsEmptyNotError(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "does-not-exist"))
	files, err := store.ListFiles()
	require.NoError(t, err)
	require.Empty(t, files)
}
