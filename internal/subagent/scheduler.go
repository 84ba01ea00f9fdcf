package subagent

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nestmesh/nest/internal/ipc"
	"github.com/nestmesh/nest/internal/logging"
	"github.com/nestmesh/nest/internal/pathpolicy"
	"github.com/nestmesh/nest/internal/procmgr"
	"github.com/nestmesh/nest/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// acceptTimeout bounds how long the scheduler waits for a freshly spawned
// child process to connect back over its socket/pipe before giving up.
const acceptTimeout = 10 * time.Second

// AskFunc routes an ask_orchestrator (or raised Question) request up to
// whatever is supervising this scheduler — typically a human channel bound
// to the main session. When blocking is false the implementation should
// return an immediate acknowledgement rather than waiting for a reply.
type AskFunc func(ctx context.Context, sessionKey, question, background string, blocking bool) (string, error)

// Info is a read-only snapshot of one subagent's status, returned by List.
type Info struct {
	Key          string
	Label        string
	Task         string
	Phase        Phase
	Status       store.SessionStatus
	Summary      string
	InputTokens  int64
	OutputTokens int64
}

// record is the scheduler's live bookkeeping for one subagent process,
// guarded by its own mutex so concurrent subagents never contend with each
// other for anything but the scheduler's top-level map.
type record struct {
	mu sync.Mutex

	session store.Session
	phase   Phase

	server *ipc.Server
	conn   *ipc.Conn
	cmd    *exec.Cmd

	pendingQuestionID string
	done              chan struct{}
	lastErr           error
}

func (r *record) snapshot() Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Info{
		Key:          r.session.Key,
		Label:        r.session.Label,
		Task:         r.session.Task,
		Phase:        r.phase,
		Status:       r.session.Status,
		Summary:      r.session.Summary,
		InputTokens:  r.session.InputTokens,
		OutputTokens: r.session.OutputTokens,
	}
}

func (r *record) transition(to Phase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !CanTransition(r.phase, to) {
		return &ErrInvalidTransition{From: r.phase, To: to}
	}
	r.phase = to
	return nil
}

func (r *record) setStatus(status store.SessionStatus) {
	r.mu.Lock()
	r.session.Status = status
	r.mu.Unlock()
}

func (r *record) setStatusWithSummary(status store.SessionStatus, summary string) {
	r.mu.Lock()
	r.session.Status = status
	if summary != "" {
		r.session.Summary = summary
	}
	r.mu.Unlock()
}

// Scheduler owns every subagent child process spawned from the main
// session (or, transitively, from another subagent): one nest-agent
// process per delegated task, each with its own socket/pipe, tracked
// independently from spawn through its terminal phase. Structured after
// the fork-join executor's bounded concurrent fan-out, generalized from
// "wait for every branch" to "track each branch's own steerable
// lifecycle" since subagents are paused, resumed, and re-instructed on
// the fly rather than simply awaited.
type Scheduler struct {
	st     *store.Store
	apiKey string
	ask    AskFunc
	procs  *procmgr.Manager

	mu        sync.Mutex
	subagents map[string]*record
}

// NewScheduler creates a scheduler backed by st for persistence. ask is
// called whenever a subagent raises a question (via ask_orchestrator or an
// explicit Question) that needs to travel up to the parent for an answer.
// procs is the same process manager the main session's turn runner uses —
// background commands a subagent starts with exec_run are visible to (and
// killable by) the rest of the gateway, not scoped to the subagent alone.
func NewScheduler(st *store.Store, apiKey string, procs *procmgr.Manager, ask AskFunc) *Scheduler {
	return &Scheduler{
		st:        st,
		apiKey:    apiKey,
		ask:       ask,
		procs:     procs,
		subagents: make(map[string]*record),
	}
}

// SpawnParams describes a new subagent delegation.
type SpawnParams struct {
	ParentSessionID string
	Label           string
	Task            string
	Model           string
	SystemPrompt    string
	PathPolicies    []pathpolicy.Policy
	DisabledTools   []string
}

// Spawn starts a new subagent child process and returns as soon as it has
// connected and been handed its task; the turn itself runs asynchronously
// and is supervised by a background goroutine.
func (s *Scheduler) Spawn(ctx context.Context, p SpawnParams) (store.Session, error) {
	sessionID := uuid.New()
	server, addr, err := ipc.Listen(sessionID)
	if err != nil {
		return store.Session{}, fmt.Errorf("opening subagent transport: %w", err)
	}

	sess, err := s.st.CreateSession(store.Session{
		ID:       sessionID.String(),
		Key:      sessionID.String(),
		Kind:     store.KindSubagent,
		ParentID: p.ParentSessionID,
		Label:    p.Label,
		Task:     p.Task,
		Model:    p.Model,
	})
	if err != nil {
		_ = server.Close()
		return store.Session{}, fmt.Errorf("creating subagent session: %w", err)
	}

	rec := &record{session: sess, phase: PhaseSpawning, server: server, done: make(chan struct{})}
	s.mu.Lock()
	s.subagents[sess.Key] = rec
	s.mu.Unlock()

	cmd, err := ipc.SpawnAgent(addr, s.apiKey)
	if err != nil {
		s.fail(rec, err)
		return store.Session{}, fmt.Errorf("spawning subagent process: %w", err)
	}
	rec.cmd = cmd

	acceptCtx, cancel := context.WithTimeout(ctx, acceptTimeout)
	conn, err := server.Accept(acceptCtx)
	cancel()
	if err != nil {
		_ = cmd.Process.Kill()
		s.fail(rec, err)
		return store.Session{}, fmt.Errorf("waiting for subagent to connect: %w", err)
	}
	rec.conn = conn

	wirePolicies := make([]ipc.WirePathPolicy, len(p.PathPolicies))
	for i, pol := range p.PathPolicies {
		wirePolicies[i] = ipc.WirePathPolicy{Path: pol.Path, Access: string(pol.Access), Recursive: pol.Recursive, Description: pol.Description}
	}
	init := ipc.Init{
		SessionID:       sess.ID,
		Model:           p.Model,
		SystemPrompt:    p.SystemPrompt,
		PathPolicies:    wirePolicies,
		DisabledTools:   p.DisabledTools,
		SessionKind:     string(store.KindSubagent),
		ParentSessionID: p.ParentSessionID,
		Label:           p.Label,
		Task:            p.Task,
	}
	if err := conn.Send(ipc.TypeInit, init); err != nil {
		_ = cmd.Process.Kill()
		s.fail(rec, err)
		return store.Session{}, fmt.Errorf("sending subagent init: %w", err)
	}

	if err := rec.transition(PhaseRunning); err != nil {
		_ = cmd.Process.Kill()
		s.fail(rec, err)
		return store.Session{}, err
	}

	go s.supervise(rec)

	return sess, nil
}

// SpawnMany starts several subagents concurrently with errgroup, one
// goroutine per subagent and no limit on how many run at once. Each
// branch's outcome is reported independently in sessions/errs by index; the
// returned error is errgroup's first failure, which also cancels the
// shared context so siblings still spawning stop connecting once one
// branch has unambiguously failed.
func (s *Scheduler) SpawnMany(ctx context.Context, params []SpawnParams) ([]store.Session, []error, error) {
	sessions := make([]store.Session, len(params))
	errs := make([]error, len(params))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range params {
		i, p := i, p
		g.Go(func() error {
			sess, err := s.Spawn(gctx, p)
			sessions[i], errs[i] = sess, err
			return err
		})
	}
	return sessions, errs, g.Wait()
}

// supervise drains one subagent's connection until it exits, routing each
// message to the store and (for ProcessRequest/Question) back up through
// ask, then records the terminal phase.
func (s *Scheduler) supervise(rec *record) {
	defer close(rec.done)
	defer func() {
		if rec.conn != nil {
			_ = rec.conn.Close()
		}
		if rec.server != nil {
			_ = rec.server.Close()
		}
		if rec.cmd != nil {
			go func(c *exec.Cmd) { _ = c.Wait() }(rec.cmd)
		}
	}()

	log := logging.With(zap.String("subagent", rec.session.Key), zap.String("label", rec.session.Label))

	for {
		msg, err := rec.conn.Recv()
		if err != nil {
			if rec.phase != PhaseDone && rec.phase != PhaseCancelled {
				log.Warn("subagent connection ended unexpectedly", zap.Error(err))
				s.fail(rec, err)
			}
			return
		}

		switch msg.Type {
		case ipc.TypeTextDelta:
			// Streamed text is informational only at the supervisor level;
			// a future UI surface can subscribe to it, but nothing here
			// needs to persist each delta.

		case ipc.TypeToolCallStart:
			var evt ipc.ToolCallStart
			if err := json.Unmarshal(msg.Payload, &evt); err == nil {
				log.Debug("subagent tool call", zap.String("tool", evt.ToolCall.Name))
			}

		case ipc.TypeToolCallResult:
			var evt ipc.ToolCallResultMsg
			if err := json.Unmarshal(msg.Payload, &evt); err == nil {
				_, _ = s.st.AppendAudit(store.AuditEntry{
					SessionID: rec.session.ID,
					Level:     store.AuditInfo,
					Category:  store.AuditCategoryTool,
					Event:     "subagent_tool_result",
					Summary:   evt.Result.ToolCallID,
				})
			}

		case ipc.TypeAuditLog:
			var evt ipc.AuditLogMsg
			if err := json.Unmarshal(msg.Payload, &evt); err == nil {
				detail := ""
				if evt.DetailJSON != nil {
					detail = *evt.DetailJSON
				}
				_, _ = s.st.AppendAudit(store.AuditEntry{
					SessionID:  rec.session.ID,
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
			go s.answerProcessRequest(rec, req)

		case ipc.TypeQuestion:
			var q ipc.Question
			if err := json.Unmarshal(msg.Payload, &q); err != nil {
				continue
			}
			rec.mu.Lock()
			rec.pendingQuestionID = q.RequestID
			rec.mu.Unlock()
			_ = s.st.UpdateStatus(rec.session.ID, store.StatusWaitingForAnswer, "")
			rec.setStatus(store.StatusWaitingForAnswer)
			go s.forwardQuestion(rec, q)

		case ipc.TypeTurnComplete:
			var evt ipc.TurnComplete
			var summary string
			if err := json.Unmarshal(msg.Payload, &evt); err == nil {
				summary = evt.Message.Content
				_, _ = s.st.AppendMessage(store.Message{
					SessionID: rec.session.ID,
					Role:      store.Role(evt.Message.Role),
					Content:   evt.Message.Content,
				})
				if evt.Message.TokenInput != nil || evt.Message.TokenOutput != nil {
					var in, out int64
					if evt.Message.TokenInput != nil {
						in = *evt.Message.TokenInput
					}
					if evt.Message.TokenOutput != nil {
						out = *evt.Message.TokenOutput
					}
					_ = s.st.UpdateTokenUsage(rec.session.ID, in, out)
					rec.mu.Lock()
					rec.session.InputTokens += in
					rec.session.OutputTokens += out
					rec.mu.Unlock()
				}
			}
			_ = rec.transition(PhaseDone)
			_ = s.st.UpdateStatus(rec.session.ID, store.StatusCompleted, summary)
			rec.setStatusWithSummary(store.StatusCompleted, summary)
			return

		case ipc.TypeError:
			var evt ipc.ErrorMsg
			_ = json.Unmarshal(msg.Payload, &evt)
			s.fail(rec, fmt.Errorf("subagent reported error: %s", evt.Message))
			return
		}
	}
}

func (s *Scheduler) forwardQuestion(rec *record, q ipc.Question) {
	if s.ask == nil {
		_ = s.Answer(rec.session.Key, "")
		return
	}
	answer, err := s.ask(context.Background(), rec.session.Key, q.Prompt, rec.session.Task, true)
	if err != nil {
		answer = fmt.Sprintf("unable to reach orchestrator: %v", err)
	}
	_ = s.Answer(rec.session.Key, answer)
}

func (s *Scheduler) answerProcessRequest(rec *record, req ipc.ProcessRequest) {
	var result json.RawMessage
	var errMsg string

	switch req.Action {
	case "ask_orchestrator":
		if s.ask == nil {
			errMsg = "no orchestrator channel available"
			break
		}
		var params struct {
			Question string `json:"question"`
			Context  string `json:"context"`
			Blocking *bool  `json:"blocking"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			errMsg = err.Error()
			break
		}
		blocking := params.Blocking == nil || *params.Blocking
		answer, err := s.ask(context.Background(), rec.session.Key, params.Question, params.Context, blocking)
		if err != nil {
			errMsg = err.Error()
		} else {
			result, _ = json.Marshal(map[string]string{"answer": answer})
		}

	case "exec_start", "exec_get_output", "exec_write_stdin", "exec_kill", "exec_list":
		result, errMsg = procmgr.Dispatch(context.Background(), s.procs, req.Action, req.Params)

	default:
		errMsg = fmt.Sprintf("unsupported process action: %s", req.Action)
	}

	rec.mu.Lock()
	conn := rec.conn
	rec.mu.Unlock()
	if conn == nil {
		return
	}
	_ = conn.Send(ipc.TypeProcessResponse, ipc.ProcessResponse{RequestID: req.RequestID, Result: result, Error: errMsg})
}

func (s *Scheduler) fail(rec *record, err error) {
	rec.mu.Lock()
	rec.lastErr = err
	rec.mu.Unlock()
	_ = rec.transition(PhaseFailed)
	_ = s.st.UpdateStatus(rec.session.ID, store.StatusFailed, "")
	rec.setStatus(store.StatusFailed)
}

func (s *Scheduler) lookup(key string) (*record, error) {
	s.mu.Lock()
	rec, ok := s.subagents[key]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no subagent with key %s", key)
	}
	return rec, nil
}

// Pause marks a running subagent paused without killing its process.
// Nothing is sent to the child, so its turn keeps running; the pause is
// recorded in the scheduler and the store only.
func (s *Scheduler) Pause(key string) error {
	rec, err := s.lookup(key)
	if err != nil {
		return err
	}
	if err := rec.transition(PhasePaused); err != nil {
		return err
	}
	if err := s.st.UpdateStatus(rec.session.ID, store.StatusPaused, ""); err != nil {
		return err
	}
	rec.setStatus(store.StatusPaused)
	return nil
}

// Resume marks a paused subagent running again and, when instructions is
// non-empty, sends them as a UserMessage. nest-agent reads only the first
// UserMessage of its turn, so the instructions do not reach a turn that is
// already under way.
func (s *Scheduler) Resume(key, instructions string) error {
	rec, err := s.lookup(key)
	if err != nil {
		return err
	}
	if err := rec.transition(PhaseRunning); err != nil {
		return err
	}
	if err := s.st.UpdateStatus(rec.session.ID, store.StatusRunning, ""); err != nil {
		return err
	}
	rec.setStatus(store.StatusRunning)
	if instructions == "" {
		return nil
	}
	return rec.conn.Send(ipc.TypeUserMessage, ipc.UserMessage{Content: instructions})
}

// Instruct sends a still-running subagent a further UserMessage without
// pausing it. nest-agent reads only the first UserMessage of its turn, so
// the instruction does not reach a turn that is already under way.
func (s *Scheduler) Instruct(key, instruction string) error {
	rec, err := s.lookup(key)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	phase := rec.phase
	rec.mu.Unlock()
	if phase != PhaseRunning {
		return &ErrInvalidTransition{From: phase, To: PhaseRunning}
	}
	return rec.conn.Send(ipc.TypeUserMessage, ipc.UserMessage{Content: instruction})
}

// Cancel marks a subagent cancelled and sends it a Cancel message.
// nest-agent does not act on Cancel: once its turn is under way its reader
// handles only ProcessResponse frames, so the child's turn runs on.
func (s *Scheduler) Cancel(key string) error {
	rec, err := s.lookup(key)
	if err != nil {
		return err
	}
	if err := rec.transition(PhaseCancelled); err != nil {
		return err
	}
	if err := s.st.UpdateStatus(rec.session.ID, store.StatusCancelled, ""); err != nil {
		return err
	}
	rec.setStatus(store.StatusCancelled)
	return rec.conn.Send(ipc.TypeCancel, ipc.Cancel{})
}

// Answer delivers a human's (or orchestrator's) reply to whichever question
// a subagent is currently blocked on.
func (s *Scheduler) Answer(key, answer string) error {
	rec, err := s.lookup(key)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	requestID := rec.pendingQuestionID
	rec.pendingQuestionID = ""
	rec.mu.Unlock()
	if requestID == "" {
		return fmt.Errorf("subagent %s is not waiting for an answer", key)
	}
	if err := s.st.UpdateStatus(rec.session.ID, store.StatusRunning, ""); err != nil {
		return err
	}
	rec.setStatus(store.StatusRunning)
	return rec.conn.Send(ipc.TypeAnswer, ipc.Answer{RequestID: requestID, Content: answer})
}

// List returns a snapshot of every subagent this scheduler has ever
// spawned. The order of the returned slice is not defined.
func (s *Scheduler) List() []Info {
	s.mu.Lock()
	recs := make([]*record, 0, len(s.subagents))
	for _, rec := range s.subagents {
		recs = append(recs, rec)
	}
	s.mu.Unlock()

	out := make([]Info, len(recs))
	for i, rec := range recs {
		out[i] = rec.snapshot()
	}
	return out
}

// Wait blocks until the named subagent reaches a terminal phase or ctx is
// cancelled.
func (s *Scheduler) Wait(ctx context.Context, key string) error {
	rec, err := s.lookup(key)
	if err != nil {
		return err
	}
	select {
	case <-rec.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
