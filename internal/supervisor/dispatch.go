package supervisor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nestmesh/nest/internal/ipc"
	"github.com/nestmesh/nest/internal/procmgr"
	"github.com/nestmesh/nest/internal/store"
	"github.com/nestmesh/nest/internal/subagent"
)

// dispatchProcessRequest answers one ProcessRequest a main-session agent
// sent over the bridge, covering every ProcessAction tag spec.md names:
// the seven session_* subagent-lifecycle actions, ask_orchestrator, and the
// five exec_* actions (delegated to procmgr.Dispatch, shared verbatim with
// internal/subagent's own answerProcessRequest).
func (s *Supervisor) dispatchProcessRequest(ctx context.Context, sess store.Session, req ipc.ProcessRequest) (json.RawMessage, string) {
	switch req.Action {
	case "spawn_subagent":
		return s.dispatchSpawnSubagent(ctx, sess, req.Params)
	case "list_subagents":
		return s.dispatchListSubagents()
	case "pause_subagent":
		return s.dispatchKeyedAction(req.Params, s.sub.Pause)
	case "cancel_subagent":
		return s.dispatchKeyedAction(req.Params, s.sub.Cancel)
	case "resume_subagent":
		return s.dispatchResumeSubagent(req.Params)
	case "instruct_subagent":
		return s.dispatchInstructSubagent(req.Params)
	case "answer_subagent":
		return s.dispatchAnswerSubagent(req.Params)
	case "ask_orchestrator":
		return s.dispatchAskOrchestrator(ctx, sess, req.Params)
	case "exec_start", "exec_get_output", "exec_write_stdin", "exec_kill", "exec_list":
		return procmgr.Dispatch(ctx, s.procs, req.Action, req.Params)
	default:
		return nil, fmt.Sprintf("unsupported process action: %s", req.Action)
	}
}

func (s *Supervisor) dispatchSpawnSubagent(ctx context.Context, sess store.Session, params json.RawMessage) (json.RawMessage, string) {
	var in struct {
		Task  string `json:"task"`
		Label string `json:"label"`
	}
	if err := json.Unmarshal(params, &in); err != nil {
		return nil, err.Error()
	}

	policies, err := s.st.LoadPolicies()
	if err != nil {
		return nil, err.Error()
	}

	sub, err := s.sub.Spawn(ctx, subagent.SpawnParams{
		ParentSessionID: sess.ID,
		Label:           in.Label,
		Task:            in.Task,
		Model:           sess.Model,
		SystemPrompt:    BuildWorkerPrompt(in.Task, in.Label, policies),
		PathPolicies:    policies,
	})
	if err != nil {
		return nil, err.Error()
	}

	out, _ := json.Marshal(map[string]string{"session_key": sub.Key, "session_id": sub.ID})
	return out, ""
}

func (s *Supervisor) dispatchListSubagents() (json.RawMessage, string) {
	infos := s.sub.List()
	subagents := make([]map[string]any, len(infos))
	for i, info := range infos {
		subagents[i] = map[string]any{
			"session_key":   info.Key,
			"label":         info.Label,
			"task":          info.Task,
			"phase":         string(info.Phase),
			"status":        string(info.Status),
			"summary":       info.Summary,
			"input_tokens":  info.InputTokens,
			"output_tokens": info.OutputTokens,
		}
	}
	out, _ := json.Marshal(map[string]any{"subagents": subagents})
	return out, ""
}

func (s *Supervisor) dispatchKeyedAction(params json.RawMessage, fn func(key string) error) (json.RawMessage, string) {
	var in struct {
		SessionKey string `json:"session_key"`
	}
	if err := json.Unmarshal(params, &in); err != nil {
		return nil, err.Error()
	}
	if err := fn(in.SessionKey); err != nil {
		return nil, err.Error()
	}
	out, _ := json.Marshal(map[string]bool{"ok": true})
	return out, ""
}

func (s *Supervisor) dispatchResumeSubagent(params json.RawMessage) (json.RawMessage, string) {
	var in struct {
		SessionKey   string `json:"session_key"`
		Instructions string `json:"instructions"`
	}
	if err := json.Unmarshal(params, &in); err != nil {
		return nil, err.Error()
	}
	if err := s.sub.Resume(in.SessionKey, in.Instructions); err != nil {
		return nil, err.Error()
	}
	out, _ := json.Marshal(map[string]bool{"ok": true})
	return out, ""
}

func (s *Supervisor) dispatchInstructSubagent(params json.RawMessage) (json.RawMessage, string) {
	var in struct {
		SessionKey  string `json:"session_key"`
		Instruction string `json:"instruction"`
	}
	if err := json.Unmarshal(params, &in); err != nil {
		return nil, err.Error()
	}
	if err := s.sub.Instruct(in.SessionKey, in.Instruction); err != nil {
		return nil, err.Error()
	}
	out, _ := json.Marshal(map[string]bool{"ok": true})
	return out, ""
}

func (s *Supervisor) dispatchAnswerSubagent(params json.RawMessage) (json.RawMessage, string) {
	var in struct {
		SessionKey string `json:"session_key"`
		Answer     string `json:"answer"`
	}
	if err := json.Unmarshal(params, &in); err != nil {
		return nil, err.Error()
	}
	if err := s.sub.Answer(in.SessionKey, in.Answer); err != nil {
		return nil, err.Error()
	}
	out, _ := json.Marshal(map[string]bool{"ok": true})
	return out, ""
}

func (s *Supervisor) dispatchAskOrchestrator(ctx context.Context, sess store.Session, params json.RawMessage) (json.RawMessage, string) {
	var in struct {
		Question string `json:"question"`
		Context  string `json:"context"`
		Blocking *bool  `json:"blocking"`
	}
	if err := json.Unmarshal(params, &in); err != nil {
		return nil, err.Error()
	}
	blocking := in.Blocking == nil || *in.Blocking
	answer, err := s.askOrchestrator(ctx, sess.Key, in.Question, in.Context, blocking)
	if err != nil {
		return nil, err.Error()
	}
	out, _ := json.Marshal(map[string]string{"answer": answer})
	return out, ""
}
