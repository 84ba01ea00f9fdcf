package supervisor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/nestmesh/nest/internal/ipc"
	"github.com/nestmesh/nest/internal/procmgr"
	"github.com/nestmesh/nest/internal/sandbox"
	"github.com/nestmesh/nest/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestSupervisor(t *testing.T) *Supervisor {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	procs := procmgr.NewManager()
	t.Cleanup(procs.Stop)

	return New(st, procs, nil, "test-key", t.TempDir(), "nest", sandbox.DefaultConfig())
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestDispatchListSubagentsEmpty(t *testing.T) {
	sup := newTestSupervisor(t)
	result, errMsg := sup.dispatchProcessRequest(context.Background(), store.Session{}, ipc.ProcessRequest{
		Action: "list_subagents",
	})
	require.Empty(t, errMsg)
	var out struct {
		Subagents []map[string]any `json:"subagents"`
	}
	require.NoError(t, json.Unmarshal(result, &out))
	require.Empty(t, out.Subagents)
}

func TestDispatchKeyedActionsRejectUnknownSession(t *testing.T) {
	sup := newTestSupervisor(t)
	for _, action := range []string{"pause_subagent", "cancel_subagent", "resume_subagent", "instruct_subagent", "answer_subagent"} {
		_, errMsg := sup.dispatchProcessRequest(context.Background(), store.Session{}, ipc.ProcessRequest{
			Action: action,
			Params: mustJSON(t, map[string]string{"session_key": "does-not-exist", "instructions": "x", "instruction": "x", "answer": "x"}),
		})
		require.NotEmpty(t, errMsg, "action %s should reject an unknown session key", action)
	}
}

func TestDispatchUnsupportedAction(t *testing.T) {
	sup := newTestSupervisor(t)
	_, errMsg := sup.dispatchProcessRequest(context.Background(), store.Session{}, ipc.ProcessRequest{Action: "not_a_real_action"})
	require.Contains(t, errMsg, "unsupported process action")
}

func TestDispatchAskOrchestratorWithNoBoundChannelReturnsFallback(t *testing.T) {
	sup := newTestSupervisor(t)
	result, errMsg := sup.dispatchProcessRequest(context.Background(), store.Session{Key: "main"}, ipc.ProcessRequest{
		Action: "ask_orchestrator",
		Params: mustJSON(t, map[string]any{"question": "what now?", "blocking": false}),
	})
	require.Empty(t, errMsg)
	var out struct {
		Answer string `json:"answer"`
	}
	require.NoError(t, json.Unmarshal(result, &out))
	require.Equal(t, noChannelFallback, out.Answer)
}

func TestDispatchExecActionsDelegateToProcmgr(t *testing.T) {
	sup := newTestSupervisor(t)
	_, errMsg := sup.dispatchProcessRequest(context.Background(), store.Session{}, ipc.ProcessRequest{
		Action: "exec_get_output",
		Params: mustJSON(t, map[string]string{"session_id": "does-not-exist"}),
	})
	require.NotEmpty(t, errMsg)
}

func TestDispatchSpawnSubagentFailsWithoutAgentBinary(t *testing.T) {
	sup := newTestSupervisor(t)
	sess, err := sup.st.CreateSession(store.Session{Kind: store.KindMain})
	require.NoError(t, err)

	_, errMsg := sup.dispatchProcessRequest(context.Background(), sess, ipc.ProcessRequest{
		Action: "spawn_subagent",
		Params: mustJSON(t, map[string]string{"task": "do the thing", "label": "worker"}),
	})
	require.NotEmpty(t, errMsg, "spawning requires a real nest-agent binary on PATH, which the test environment doesn't provide")
}
