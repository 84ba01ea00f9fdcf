package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeBridge struct {
	lastAction string
	lastParams json.RawMessage
	result     json.RawMessage
	err        error
}

func (f *fakeBridge) Request(action string, params json.RawMessage) (json.RawMessage, error) {
	f.lastAction = action
	f.lastParams = params
	return f.result, f.err
}

func TestSessionSpawnSendsTaskAndParsesResult(t *testing.T) {
	bridge := &fakeBridge{result: json.RawMessage(`{"session_key":"k1","session_id":"s1"}`)}
	tool := NewSessionSpawn(bridge)

	out, isErr, err := tool.Execute(context.Background(), json.RawMessage(`{"task":"write tests"}`))
	require.NoError(t, err)
	require.False(t, isErr)
	require.Equal(t, "spawn_subagent", bridge.lastAction)
	require.Contains(t, out, `"session_key":"k1"`)
	require.Contains(t, out, `"label":"write tests"`)
}

func TestSessionSpawnMissingTaskIsToolError(t *testing.T) {
	tool := NewSessionSpawn(&fakeBridge{})
	out, isErr, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	require.True(t, isErr)
	require.Contains(t, out, "task")
}

func TestExecListFormatsProcessTable(t *testing.T) {
	bridge := &fakeBridge{result: json.RawMessage(`{"processes":[{"session_id":"p1","command":"ls","is_running":true}]}`)}
	tool := NewExecList(bridge)
	out, isErr, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	require.False(t, isErr)
	require.Contains(t, out, "p1")
	require.Contains(t, out, "running")
}

func TestRegistryDisableRemovesToolFromListing(t *testing.T) {
	bridge := &fakeBridge{}
	reg := BuildWorkerRegistry(bridge, []string{"exec_kill"})

	_, ok := reg.Get("exec_kill")
	require.False(t, ok)

	_, ok = reg.Get("exec_run")
	require.True(t, ok)
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	reg := NewRegistry()
	out, isErr := reg.Execute(context.Background(), "nonexistent", nil)
	require.True(t, isErr)
	require.Contains(t, out, "unknown tool")
}

func TestNotImplementedToolsAreRegisteredButStubbed(t *testing.T) {
	reg := BuildOrchestratorRegistry(&fakeBridge{}, nil)
	tool, ok := reg.Get("fs_read")
	require.True(t, ok)
	out, isErr, err := tool.Execute(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, isErr)
	require.Contains(t, out, "not available")
}
