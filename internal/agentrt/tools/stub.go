package tools

import (
	"context"
	"encoding/json"
)

// NotImplemented registers a tool name and schema without a working body.
// fs_read, fs_write, fs_list, shell_run, web_fetch, and screenshot are
// genuinely out of scope (they need a direct-filesystem / direct-process
// worker path this module doesn't implement — everything here routes
// through the gateway bridge instead), but they're still registered so
// disabled-tool filtering and tool listing exercise the full worker tool
// surface named in SPEC_FULL.md §6.5, not just the bridge-backed subset.
type NotImplemented struct {
	name        string
	description string
	schema      json.RawMessage
}

func NewNotImplemented(name, description string, schema json.RawMessage) *NotImplemented {
	return &NotImplemented{name: name, description: description, schema: schema}
}

func (t *NotImplemented) Name() string                  { return t.name }
func (t *NotImplemented) Description() string            { return t.description }
func (t *NotImplemented) InputSchema() json.RawMessage    { return t.schema }
func (t *NotImplemented) Execute(ctx context.Context, input json.RawMessage) (string, bool, error) {
	return t.name + " is not available in this deployment", true, nil
}

var objectSchema = json.RawMessage(`{"type": "object", "properties": {}}`)

// DefaultUnimplemented returns every worker tool stubbed as NotImplemented,
// for registries that want the full worker surface listed even where this
// module doesn't implement a real body.
func DefaultUnimplemented() []*NotImplemented {
	return []*NotImplemented{
		NewNotImplemented("fs_read", "Read a file's contents, subject to path policy.", objectSchema),
		NewNotImplemented("fs_write", "Write a file's contents, subject to path policy.", objectSchema),
		NewNotImplemented("fs_list", "List a directory's contents, subject to path policy.", objectSchema),
		NewNotImplemented("shell_run", "Run a one-shot shell command directly in the sandbox.", objectSchema),
		NewNotImplemented("web_fetch", "Fetch a URL's contents.", objectSchema),
		NewNotImplemented("screenshot", "Capture a screenshot of the current display.", objectSchema),
	}
}
