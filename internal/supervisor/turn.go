// Package supervisor drives one conversational turn end to end: spawn a
// sandboxed per-turn agent process, hand it the conversation so far, relay
// its streamed output and privileged-action requests, persist what it
// produces, and fire the post-turn reflection pass. Grounded on
// original_source/crates/bat-gateway/src/ipc.rs's spawn_agent call site and
// session.rs's SessionManager, which the original keeps in one process;
// here the turn loop on the agent side (internal/agentrt) and this,
// its supervisor-side counterpart, are split across the IPC boundary spec.md
// requires.
package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nestmesh/nest/internal/eventbus"
	"github.com/nestmesh/nest/internal/ipc"
	"github.com/nestmesh/nest/internal/logging"
	"github.com/nestmesh/nest/internal/pathpolicy"
	"github.com/nestmesh/nest/internal/procmgr"
	"github.com/nestmesh/nest/internal/reflection"
	"github.com/nestmesh/nest/internal/sandbox"
	"github.com/nestmesh/nest/internal/store"
	"github.com/nestmesh/nest/internal/subagent"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// acceptTimeout bounds how long RunTurn waits for a freshly spawned agent
// to connect back over its socket/pipe.
const acceptTimeout = 10 * time.Second

// Supervisor owns the long-lived state shared by every turn of the main
// session: persistence, the process table subagents and the main session
// both spawn into, the subagent scheduler, the event bus UI/CLI surfaces
// subscribe to, the human channel AskOrchestrator calls reach, and the
// reflection pass that runs once a main-session turn completes.
type Supervisor struct {
	st      *store.Store
	procs   *procmgr.Manager
	sub     *subagent.Scheduler
	bus     *eventbus.Bus[TurnEvent]
	human   *HumanChannel
	reflect *reflection.Reflector

	apiKey        string
	sandboxConfig sandbox.Config
	workspace     string
	agentName     string
}

// New wires a Supervisor. procs and the subagent scheduler share the same
// *procmgr.Manager so exec_* actions started from any session land in one
// process table. workspace is where IDENTITY.md/MEMORY.md/SKILLS.md live
// for BuildOrchestratorPrompt; agentName is interpolated into the main
// session's system prompt.
func New(st *store.Store, procs *procmgr.Manager, reflector *reflection.Reflector, apiKey, workspace, agentName string, sandboxCfg sandbox.Config) *Supervisor {
	bus := eventbus.New[TurnEvent]()
	human := NewHumanChannel()

	s := &Supervisor{
		st:            st,
		procs:         procs,
		bus:           bus,
		human:         human,
		reflect:       reflector,
		apiKey:        apiKey,
		sandboxConfig: sandboxCfg,
		workspace:     workspace,
		agentName:     agentName,
	}
	s.sub = subagent.NewScheduler(st, apiKey, procs, s.askOrchestrator)
	return s
}

// Events returns the bus every turn publishes progress and questions to.
func (s *Supervisor) Events() *eventbus.Bus[TurnEvent] { return s.bus }

// Human returns the channel AskOrchestrator calls from the main session
// route through; a CLI/UI surface binds it on attach and answers questions
// it chooses to answer.
func (s *Supervisor) Human() *HumanChannel { return s.human }

// Subagents exposes the scheduler for operator-facing introspection
// (listing, pausing, resuming, cancelling) outside of an agent's own tool
// calls.
func (s *Supervisor) Subagents() *subagent.Scheduler { return s.sub }

func (s *Supervisor) askOrchestrator(ctx context.Context, sessionKey, question, background string, blocking bool) (string, error) {
	return s.human.Ask(ctx, s.bus, sessionKey, question, background, blocking)
}

// RunTurn drives one main-session turn to completion: persist the user's
// message, spawn a sandboxed agent with the conversation so far, relay its
// output and privileged-action requests until TurnComplete or a terminal
// error, then run the reflection pass. Mirrors spec.md §4.7's eight steps.
func (s *Supervisor) RunTurn(ctx context.Context, sess store.Session, userContent string) error {
	if _, err := s.st.AppendMessage(store.Message{SessionID: sess.ID, Role: store.RoleUser, Content: userContent}); err != nil {
		return fmt.Errorf("persisting user message: %w", err)
	}
	history, err := s.st.GetHistory(sess.ID)
	if err != nil {
		return fmt.Errorf("loading session history: %w", err)
	}

	sessionUUID, err := uuid.Parse(sess.ID)
	if err != nil {
		return fmt.Errorf("session id %q is not a valid uuid: %w", sess.ID, err)
	}
	server, addr, err := ipc.Listen(sessionUUID)
	if err != nil {
		return fmt.Errorf("opening turn transport: %w", err)
	}
	defer server.Close()

	cmd, err := ipc.SpawnAgent(addr, s.apiKey)
	if err != nil {
		return fmt.Errorf("spawning agent process: %w", err)
	}

	if handle, sbErr := sandbox.Apply(cmd.Process.Pid, s.sandboxConfig); sbErr != nil {
		logging.Warn("sandbox apply failed, continuing unsandboxed", zap.Int("pid", cmd.Process.Pid), zap.Error(sbErr))
	} else {
		defer handle.Close()
	}

	acceptCtx, cancel := context.WithTimeout(ctx, acceptTimeout)
	conn, err := server.Accept(acceptCtx)
	cancel()
	if err != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("waiting for agent to connect: %w", err)
	}
	defer conn.Close()

	policies, err := s.st.LoadPolicies()
	if err != nil {
		return fmt.Errorf("loading path policies: %w", err)
	}

	init := ipc.Init{
		SessionID:    sess.ID,
		Model:        sess.Model,
		SystemPrompt: BuildOrchestratorPrompt(s.workspace, s.agentName, policies),
		History:      toWireHistory(s.st, history[:len(history)-1]),
		PathPolicies: toWirePolicies(policies),
		SessionKind:  string(store.KindMain),
	}
	if err := conn.Send(ipc.TypeInit, init); err != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("sending init: %w", err)
	}
	if err := conn.Send(ipc.TypeUserMessage, ipc.UserMessage{Content: userContent}); err != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("sending user message: %w", err)
	}

	// The event loop and the process-exit wait run concurrently: if the
	// agent process dies mid-turn without ever sending TurnComplete,
	// closing the connection is what unblocks driveConn's otherwise
	// indefinite Recv, rather than anything context-shaped. errgroup
	// still earns its keep here by joining the two and surfacing
	// whichever side errors first (SPEC_FULL.md §5's per-turn
	// concurrency table).
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.driveConn(ctx, sess, conn)
	})
	g.Go(func() error {
		waitErr := cmd.Wait()
		_ = conn.Close()
		if waitErr != nil {
			logging.Warn("agent process exited non-zero", zap.String("session_id", sess.ID), zap.Error(waitErr))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if sess.Kind == store.KindMain {
		s.runReflection(sess, userContent)
	}
	return nil
}

// driveConn runs the per-turn event-dispatch loop: every message the agent
// sends is classified and handled until TurnComplete, Error, or the
// connection drops. ProcessRequest is dispatched synchronously, matching
// spec.md §4.7 step 6's requirement that bridge actions complete before
// the agent's blocked tool call can continue.
func (s *Supervisor) driveConn(ctx context.Context, sess store.Session, conn *ipc.Conn) error {
	for {
		msg, err := conn.Recv()
		if err != nil {
			s.bus.Publish(TurnEvent{Kind: EventError, SessionID: sess.ID, SessionKey: sess.Key, Text: err.Error()})
			return fmt.Errorf("agent connection ended: %w", err)
		}

		switch msg.Type {
		case ipc.TypeTextDelta:
			var evt ipc.TextDelta
			if json.Unmarshal(msg.Payload, &evt) == nil {
				s.bus.Publish(TurnEvent{Kind: EventTextDelta, SessionID: sess.ID, SessionKey: sess.Key, Text: evt.Content})
			}

		case ipc.TypeToolCallStart:
			var evt ipc.ToolCallStart
			if json.Unmarshal(msg.Payload, &evt) == nil {
				s.bus.Publish(TurnEvent{Kind: EventToolCallStart, SessionID: sess.ID, SessionKey: sess.Key, ToolCall: &evt.ToolCall})
			}

		case ipc.TypeToolCallResult:
			var evt ipc.ToolCallResultMsg
			if json.Unmarshal(msg.Payload, &evt) == nil {
				s.bus.Publish(TurnEvent{Kind: EventToolCallResult, SessionID: sess.ID, SessionKey: sess.Key, ToolResult: &evt.Result})
			}

		case ipc.TypeAuditLog:
			var evt ipc.AuditLogMsg
			if json.Unmarshal(msg.Payload, &evt) == nil {
				detail := ""
				if evt.DetailJSON != nil {
					detail = *evt.DetailJSON
				}
				_, _ = s.st.AppendAudit(store.AuditEntry{
					SessionID:  sess.ID,
					Level:      store.AuditLevel(evt.Level),
					Category:   store.AuditCategory(evt.Category),
					Event:      evt.Event,
					Summary:    evt.Summary,
					DetailJSON: detail,
				})
			}

		case ipc.TypeProcessRequest:
			var req ipc.ProcessRequest
			if err := json.Unmarshal(msg.Payload, &req); err != nil {
				continue
			}
			result, errMsg := s.dispatchProcessRequest(ctx, sess, req)
			if sendErr := conn.Send(ipc.TypeProcessResponse, ipc.ProcessResponse{RequestID: req.RequestID, Result: result, Error: errMsg}); sendErr != nil {
				logging.Warn("failed to reply to process request", zap.String("action", req.Action), zap.Error(sendErr))
			}

		case ipc.TypeTurnComplete:
			var evt ipc.TurnComplete
			if err := json.Unmarshal(msg.Payload, &evt); err != nil {
				return fmt.Errorf("decoding turn complete: %w", err)
			}
			saved, err := s.st.AppendMessage(store.Message{SessionID: sess.ID, Role: store.Role(evt.Message.Role), Content: evt.Message.Content})
			if err != nil {
				logging.Warn("failed to persist assistant message", zap.Error(err))
			} else {
				s.persistToolActivity(sess.ID, saved.ID, evt.Message.ToolCalls, evt.Message.ToolResults)
			}
			if evt.Message.TokenInput != nil || evt.Message.TokenOutput != nil {
				var in, out int64
				if evt.Message.TokenInput != nil {
					in = *evt.Message.TokenInput
				}
				if evt.Message.TokenOutput != nil {
					out = *evt.Message.TokenOutput
				}
				if err := s.st.UpdateTokenUsage(sess.ID, in, out); err != nil {
					logging.Warn("failed to update token usage", zap.Error(err))
				}
			}
			s.bus.Publish(TurnEvent{Kind: EventTurnComplete, SessionID: sess.ID, SessionKey: sess.Key, Text: evt.Message.Content})
			return nil

		case ipc.TypeError:
			var evt ipc.ErrorMsg
			_ = json.Unmarshal(msg.Payload, &evt)
			s.bus.Publish(TurnEvent{Kind: EventError, SessionID: sess.ID, SessionKey: sess.Key, Text: evt.Message})
			return fmt.Errorf("agent reported error: %s", evt.Message)
		}
	}
}

// persistToolActivity records a completed assistant turn's tool calls and
// their results against the message that requested them, so a later
// toWireHistory replay can reconstruct the same exchange for a fresh agent
// process. Best-effort: a failure here never fails the turn, matching
// runReflection's posture toward non-critical post-completion writes.
func (s *Supervisor) persistToolActivity(sessionID, messageID string, calls []ipc.WireToolCall, results []ipc.WireToolResult) {
	resultByCallID := make(map[string]ipc.WireToolResult, len(results))
	for _, r := range results {
		resultByCallID[r.ToolCallID] = r
	}
	for _, tc := range calls {
		if _, err := s.st.RecordToolCall(store.ToolCall{
			ID:        tc.ID,
			MessageID: messageID,
			SessionID: sessionID,
			ToolName:  tc.Name,
			InputJSON: string(tc.Input),
		}); err != nil {
			logging.Warn("failed to persist tool call", zap.String("tool_call_id", tc.ID), zap.Error(err))
			continue
		}
		if r, ok := resultByCallID[tc.ID]; ok {
			if err := s.st.RecordToolResult(store.ToolResult{
				ToolCallID: tc.ID,
				SessionID:  sessionID,
				Output:     r.Content,
				IsError:    r.IsError,
			}); err != nil {
				logging.Warn("failed to persist tool result", zap.String("tool_call_id", tc.ID), zap.Error(err))
			}
		}
	}
}

// runReflection fires the post-turn memory pass for Main sessions, never
// letting a reflection failure fail the turn itself — MaybeRemember
// already swallows its own errors, so this only exists to keep the call
// out of the critical turn-completion path.
func (s *Supervisor) runReflection(sess store.Session, userContent string) {
	if s.reflect == nil {
		return
	}
	history, err := s.st.GetHistory(sess.ID)
	if err != nil || len(history) == 0 {
		return
	}
	last := history[len(history)-1]
	if last.Role != store.RoleAssistant {
		return
	}
	go s.reflect.MaybeRemember(context.Background(), userContent, last.Content)
}

// toWireHistory converts stored messages to their wire form for replay
// onto a freshly spawned agent process, reattaching each assistant
// message's tool calls and results from their own tables. st may be nil in
// tests that only need role/content; a nil st skips the per-message tool
// activity lookup rather than panicking.
func toWireHistory(st *store.Store, history []store.Message) []ipc.WireMessageEntry {
	out := make([]ipc.WireMessageEntry, len(history))
	for i, m := range history {
		entry := ipc.WireMessageEntry{
			ID:        m.ID,
			SessionID: m.SessionID,
			Role:      string(m.Role),
			Content:   m.Content,
			CreatedAt: m.CreatedAt.Format(time.RFC3339Nano),
		}
		if st != nil && m.Role == store.RoleAssistant {
			if calls, err := st.GetToolCallsForMessage(m.ID); err == nil {
				entry.ToolCalls, entry.ToolResults = toWireToolActivity(st, calls)
			}
		}
		out[i] = entry
	}
	return out
}

func toWireToolActivity(st *store.Store, calls []store.ToolCall) ([]ipc.WireToolCall, []ipc.WireToolResult) {
	wireCalls := make([]ipc.WireToolCall, len(calls))
	var wireResults []ipc.WireToolResult
	for i, tc := range calls {
		wireCalls[i] = ipc.WireToolCall{ID: tc.ID, Name: tc.ToolName, Input: json.RawMessage(tc.InputJSON)}
		if tr, err := st.GetToolResult(tc.ID); err == nil {
			wireResults = append(wireResults, ipc.WireToolResult{ToolCallID: tr.ToolCallID, Content: tr.Output, IsError: tr.IsError})
		}
	}
	return wireCalls, wireResults
}

func toWirePolicies(policies []pathpolicy.Policy) []ipc.WirePathPolicy {
	out := make([]ipc.WirePathPolicy, len(policies))
	for i, p := range policies {
		out[i] = ipc.WirePathPolicy{Path: p.Path, Access: string(p.Access), Recursive: p.Recursive, Description: p.Description}
	}
	return out
}
