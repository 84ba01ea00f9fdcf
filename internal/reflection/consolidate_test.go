package reflection

import (
	"context"
	"testing"

	"github.com/nestmesh/nest/internal/llm"
	"github.com/stretchr/testify/require"
)

func TestConsolidateRewritesChangedFiles(t *testing.T) {
	rewritten := "===FILENAME=== MEMORY.md\n# Memory\n\n- merged fact\n"
	srv := respondingWith(t, rewritten)
	defer srv.Close()

	dir := t.TempDir()
	memory := NewStore(dir)
	require.NoError(t, memory.Write("MEMORY.md", "# Memory\n\n- fact one\n- fact one again\n"))

	client := llm.NewClient(llm.Config{APIKey: "k", Model: "haiku", Endpoint: srv.URL})
	c := NewConsolidator(client, memory, nil)

	diffs, err := c.Consolidate(context.Background(), []string{"MEMORY.md"})
	require.NoError(t, err)
	require.Contains(t, diffs, "MEMORY.md")

	content, err := memory.Read("MEMORY.md")
	require.NoError(t, err)
	require.Equal(t, "# Memory\n\n- merged fact", content)
}

func TestConsolidateLeavesUnchangedFilesAlone(t *testing.T) {
	original := "# Memory\n\n- fact one\n"
	rewritten := "===FILENAME=== MEMORY.md\n" + original
	srv := respondingWith(t, rewritten)
	defer srv.Close()

	dir := t.TempDir()
	memory := NewStore(dir)
	require.NoError(t, memory.Write("MEMORY.md", original))

	client := llm.NewClient(llm.Config{APIKey: "k", Model: "haiku", Endpoint: srv.URL})
	c := NewConsolidator(client, memory, nil)

	diffs, err := c.Consolidate(context.Background(), []string{"MEMORY.md"})
	require.NoError(t, err)
	require.Empty(t, diffs)
}

func TestParseSectionsSplitsMultipleFiles(t *testing.T) {
	text := "===FILENAME=== MEMORY.md\nline one\nline two\n\n===FILENAME=== PATTERNS.md\nonly line\n"
	sections := parseSections(text)
	require.Equal(t, "line one\nline two", sections["MEMORY.md"])
	require.Equal(t, "only line", sections["PATTERNS.md"])
}

func TestWatchWorkspaceReportsMarkdownEdits(t *testing.T) {
	dir := t.TempDir()
	w, err := WatchWorkspace(dir)
	require.NoError(t, err)
	defer w.Close()

	memory := NewStore(dir)
	require.NoError(t, memory.Write("MEMORY.md", "hello"))

	select {
	case evt := <-w.Events():
		require.Contains(t, evt.Name, "MEMORY.md")
	case err := <-w.Errors():
		t.Fatalf("watcher error: %v", err)
	}
}
