package reflection

import (
	"context"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/nestmesh/nest/internal/llm"
	"github.com/nestmesh/nest/internal/logging"
	"github.com/nestmesh/nest/internal/store"
	"github.com/sergi/go-diff/diffmatchpatch"
	"go.uber.org/zap"
)

// sectionDelimiter marks the start of one file's content within a
// multi-file consolidation rewrite, so one model call can restructure
// every memory file at once instead of one call per file.
const sectionDelimiter = "===FILENAME==="

// Consolidator asks the reflection model, on each Consolidate call, to
// merge and deduplicate the workspace's memory files. Watching the files
// for out-of-band edits is done separately, by WatchWorkspace.
type Consolidator struct {
	client *llm.Client
	memory *Store
	audit  *store.Store
}

// NewConsolidator builds a Consolidator sharing the same model client a
// Reflector uses. audit may be nil, in which case consolidation runs but
// records no audit entry — callers that haven't wired a store yet (tests,
// one-off CLI invocations) still get a working Consolidate.
func NewConsolidator(client *llm.Client, memory *Store, audit *store.Store) *Consolidator {
	return &Consolidator{client: client, memory: memory, audit: audit}
}

// Consolidate rewrites every named memory file in one pass, asking the
// model to deduplicate overlapping entries and tighten phrasing while
// preserving every distinct fact. Each file whose content changed is
// written back immediately, the same way Write always does (.bak first);
// the returned map holds, per changed file, diffmatchpatch's
// DiffPrettyText rendering of the change (not a unified diff).
func (c *Consolidator) Consolidate(ctx context.Context, names []string) (map[string]string, error) {
	before := make(map[string]string, len(names))
	var sections strings.Builder
	for _, name := range names {
		content, err := c.memory.Read(name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		before[name] = content
		fmt.Fprintf(&sections, "%s %s\n%s\n\n", sectionDelimiter, name, content)
	}

	resp, err := c.client.Chat(ctx, consolidationSystemPrompt, []llm.Message{{Role: "user", Content: sections.String()}}, nil)
	if err != nil {
		return nil, fmt.Errorf("consolidation request failed: %w", err)
	}

	rewritten := parseSections(firstText(resp))
	diffs := make(map[string]string)
	dmp := diffmatchpatch.New()

	for _, name := range names {
		newContent, ok := rewritten[name]
		if !ok || newContent == strings.TrimRight(before[name], "\n") {
			continue
		}
		patches := dmp.DiffMain(before[name], newContent, false)
		diffs[name] = dmp.DiffPrettyText(patches)
		if err := c.memory.Write(name, newContent); err != nil {
			return diffs, fmt.Errorf("writing consolidated %s: %w", name, err)
		}
		logging.Info("consolidated memory file", zap.String("file", name))
		if c.audit != nil {
			if _, err := c.audit.AppendAudit(store.AuditEntry{
				Level:    store.AuditInfo,
				Category: store.AuditCategoryMemory,
				Event:    "memory_consolidated",
				Summary:  fmt.Sprintf("consolidated %s", name),
			}); err != nil {
				logging.Warn("recording consolidation audit entry", zap.String("file", name), zap.Error(err))
			}
		}
	}
	return diffs, nil
}

// parseSections splits a ===FILENAME=== name\n<content> transcript back
// into a name -> content map.
func parseSections(text string) map[string]string {
	out := make(map[string]string)
	var current string
	var body strings.Builder

	flush := func() {
		if current != "" {
			out[current] = strings.TrimRight(body.String(), "\n")
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if name, ok := strings.CutPrefix(line, sectionDelimiter+" "); ok {
			flush()
			current = strings.TrimSpace(name)
			body.Reset()
			continue
		}
		if current != "" {
			body.WriteString(line)
			body.WriteString("\n")
		}
	}
	flush()
	return out
}

const consolidationSystemPrompt = `You maintain a set of long-term memory files for an AI agent workspace.
You will be given the current contents of several files, each preceded by a
"===FILENAME=== <name>" marker. Rewrite them to remove duplicate or
superseded entries and tighten phrasing, without losing any distinct fact.
Reply with the same "===FILENAME=== <name>" markers followed by each file's
new full contents, in the same order you received them.`

// Watcher notifies on out-of-band edits to workspace memory files (e.g. a
// human editing MEMORY.md directly while the agent is running), so a
// caller can decide to reload before the next reflection pass.
type Watcher struct {
	fsw *fsnotify.Watcher
}

// WatchWorkspace starts watching workspace for filesystem events.
func WatchWorkspace(workspace string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating memory file watcher: %w", err)
	}
	if err := fsw.Add(workspace); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", workspace, err)
	}
	return &Watcher{fsw: fsw}, nil
}

// Events streams filesystem events for *.md files under the watched
// workspace, filtering out the .bak files Write creates so a caller
// doesn't treat its own backups as external edits.
func (w *Watcher) Events() <-chan fsnotify.Event {
	out := make(chan fsnotify.Event)
	go func() {
		defer close(out)
		for event := range w.fsw.Events {
			if !strings.HasSuffix(event.Name, ".md") {
				continue
			}
			out <- event
		}
	}()
	return out
}

// Errors surfaces the underlying watcher's error stream.
func (w *Watcher) Errors() <-chan error { return w.fsw.Errors }

// Close stops the watcher.
func (w *Watcher) Close() error { return w.fsw.Close() }
