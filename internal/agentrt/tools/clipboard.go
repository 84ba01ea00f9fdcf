package tools

import (
	"context"
	"encoding/json"

	"github.com/atotto/clipboard"
)

// ClipboardRead and ClipboardWrite give the agent real system clipboard
// access. original_source's tools/clipboard.rs shells out to
// pbpaste/xclip/powershell per OS; github.com/atotto/clipboard wraps the
// same OS-native mechanisms behind one portable Go API, so no per-OS build
// tags are needed here.
type ClipboardRead struct{}

func NewClipboardRead() *ClipboardRead { return &ClipboardRead{} }

func (t *ClipboardRead) Name() string        { return "clipboard_read" }
func (t *ClipboardRead) Description() string { return "Read the current contents of the system clipboard." }

func (t *ClipboardRead) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func (t *ClipboardRead) Execute(ctx context.Context, input json.RawMessage) (string, bool, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return "failed to read clipboard: " + err.Error(), true, nil
	}
	out, _ := json.Marshal(map[string]any{"content": text})
	return string(out), false, nil
}

type ClipboardWrite struct{}

func NewClipboardWrite() *ClipboardWrite { return &ClipboardWrite{} }

func (t *ClipboardWrite) Name() string        { return "clipboard_write" }
func (t *ClipboardWrite) Description() string { return "Write text to the system clipboard." }

func (t *ClipboardWrite) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {"text": {"type": "string", "description": "Text to write to the clipboard"}},
		"required": ["text"]
	}`)
}

func (t *ClipboardWrite) Execute(ctx context.Context, input json.RawMessage) (string, bool, error) {
	text, err := requireString(input, "text")
	if err != nil {
		return err.Error(), true, nil
	}
	if err := clipboard.WriteAll(text); err != nil {
		return "failed to write clipboard: " + err.Error(), true, nil
	}
	out, _ := json.Marshal(map[string]any{"status": "written", "length": len(text)})
	return string(out), false, nil
}
