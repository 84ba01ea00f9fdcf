package procmgr

import (
	"context"
	"encoding/json"
	"fmt"
)

// Dispatch maps one of the exec_* gateway-bridge actions onto the
// corresponding Manager call and marshals its result back into the
// json.RawMessage shape a ProcessResponse carries. Both the main
// session's turn runner and the subagent scheduler hit this from their
// own IPC boundary, so exec_* requests from either side reach the same
// shared Manager. Only the worker tool registry registers the exec_*
// tools.
func Dispatch(ctx context.Context, m *Manager, action string, params json.RawMessage) (json.RawMessage, string) {
	switch action {
	case "exec_start":
		return dispatchExecStart(ctx, m, params)
	case "exec_get_output":
		return dispatchExecOutput(m, params)
	case "exec_write_stdin":
		return dispatchExecWriteStdin(m, params)
	case "exec_kill":
		return dispatchExecKill(m, params)
	case "exec_list":
		return dispatchExecList(m)
	default:
		return nil, fmt.Sprintf("unsupported process action: %s", action)
	}
}

func dispatchExecStart(ctx context.Context, m *Manager, params json.RawMessage) (json.RawMessage, string) {
	var in struct {
		Command    string `json:"command"`
		Background bool   `json:"background"`
		Workdir    string `json:"workdir"`
	}
	if err := json.Unmarshal(params, &in); err != nil {
		return nil, err.Error()
	}

	if in.Background {
		sessionID, err := m.Spawn(in.Command, in.Workdir)
		if err != nil {
			return nil, err.Error()
		}
		out, _ := json.Marshal(map[string]any{"session_id": sessionID, "started": true})
		return out, ""
	}

	stdout, stderr, exitCode, err := m.RunForeground(ctx, in.Command, in.Workdir)
	if err != nil {
		return nil, err.Error()
	}
	out, _ := json.Marshal(map[string]any{
		"stdout":     stdout,
		"stderr":     stderr,
		"is_running": false,
		"exit_code":  exitCode,
		"started":    false,
	})
	return out, ""
}

func dispatchExecOutput(m *Manager, params json.RawMessage) (json.RawMessage, string) {
	var in struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(params, &in); err != nil {
		return nil, err.Error()
	}
	stdout, stderr, running, exitCode, err := m.GetOutput(in.SessionID)
	if err != nil {
		return nil, err.Error()
	}
	out, _ := json.Marshal(map[string]any{
		"stdout":     stdout,
		"stderr":     stderr,
		"is_running": running,
		"exit_code":  exitCode,
	})
	return out, ""
}

func dispatchExecWriteStdin(m *Manager, params json.RawMessage) (json.RawMessage, string) {
	var in struct {
		SessionID string `json:"session_id"`
		Data      string `json:"data"`
	}
	if err := json.Unmarshal(params, &in); err != nil {
		return nil, err.Error()
	}
	if err := m.WriteStdin(in.SessionID, in.Data); err != nil {
		return nil, err.Error()
	}
	out, _ := json.Marshal(map[string]any{"written": true})
	return out, ""
}

func dispatchExecKill(m *Manager, params json.RawMessage) (json.RawMessage, string) {
	var in struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(params, &in); err != nil {
		return nil, err.Error()
	}
	if err := m.Kill(in.SessionID); err != nil {
		return nil, err.Error()
	}
	out, _ := json.Marshal(map[string]any{"killed": true})
	return out, ""
}

func dispatchExecList(m *Manager) (json.RawMessage, string) {
	infos := m.List()
	processes := make([]map[string]any, len(infos))
	for i, info := range infos {
		processes[i] = map[string]any{
			"session_id": info.SessionID,
			"command":    info.Command,
			"is_running": info.IsRunning,
			"exit_code":  info.ExitCode,
		}
	}
	out, _ := json.Marshal(map[string]any{"processes": processes})
	return out, ""
}
