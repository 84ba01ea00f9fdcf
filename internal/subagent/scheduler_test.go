package subagent

import (
	"net"
	"testing"

	"github.com/nestmesh/nest/internal/ipc"
	"github.com/nestmesh/nest/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T) (*Scheduler, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return NewScheduler(st, "test-key", nil, nil), st
}

// attachPipe gives rec a live Conn backed by an in-memory net.Pipe and
// returns the peer end, so a test can read whatever the scheduler sends.
func attachPipe(rec *record) net.Conn {
	serverSide, peer := net.Pipe()
	rec.conn = ipc.NewConn(serverSide)
	return peer
}

func newSubagentRecord(t *testing.T, st *store.Store, phase Phase, status store.SessionStatus) *record {
	t.Helper()
	sess, err := st.CreateSession(store.Session{Kind: store.KindSubagent, Label: "worker", Task: "do the thing"})
	require.NoError(t, err)
	if status != store.StatusRunning {
		require.NoError(t, st.UpdateStatus(sess.ID, status, ""))
		sess.Status = status
	}
	return &record{session: sess, phase: phase, done: make(chan struct{})}
}

func TestPauseRejectsUnknownSubagent(t *testing.T) {
	sched, _ := newTestScheduler(t)
	err := sched.Pause("does-not-exist")
	require.Error(t, err)
}

func TestPauseThenResumeRoundTrips(t *testing.T) {
	sched, st := newTestScheduler(t)
	rec := newSubagentRecord(t, st, PhaseRunning, store.StatusRunning)
	peer := attachPipe(rec)
	defer peer.Close()
	sched.mu.Lock()
	sched.subagents[rec.session.Key] = rec
	sched.mu.Unlock()

	require.NoError(t, sched.Pause(rec.session.Key))
	require.Equal(t, PhasePaused, rec.snapshot().Phase)

	done := make(chan ipc.WireMessage, 1)
	go func() {
		c := ipc.NewConn(peer)
		msg, err := c.Recv()
		require.NoError(t, err)
		done <- msg
	}()

	require.NoError(t, sched.Resume(rec.session.Key, "keep going"))
	require.Equal(t, PhaseRunning, rec.snapshot().Phase)

	msg := <-done
	require.Equal(t, ipc.TypeUserMessage, msg.Type)
}

func TestPauseTwiceIsRejectedByStateMachine(t *testing.T) {
	sched, st := newTestScheduler(t)
	rec := newSubagentRecord(t, st, PhaseRunning, store.StatusRunning)
	attachPipe(rec)
	sched.mu.Lock()
	sched.subagents[rec.session.Key] = rec
	sched.mu.Unlock()

	require.NoError(t, sched.Pause(rec.session.Key))
	err := sched.Pause(rec.session.Key)
	require.Error(t, err)
	var transErr *ErrInvalidTransition
	require.ErrorAs(t, err, &transErr)
}

func TestInstructRequiresRunningPhase(t *testing.T) {
	sched, st := newTestScheduler(t)
	rec := newSubagentRecord(t, st, PhasePaused, store.StatusPaused)
	attachPipe(rec)
	sched.mu.Lock()
	sched.subagents[rec.session.Key] = rec
	sched.mu.Unlock()

	err := sched.Instruct(rec.session.Key, "hurry up")
	require.Error(t, err)
}

func TestAnswerWithoutPendingQuestionFails(t *testing.T) {
	sched, st := newTestScheduler(t)
	rec := newSubagentRecord(t, st, PhaseRunning, store.StatusWaitingForAnswer)
	attachPipe(rec)
	sched.mu.Lock()
	sched.subagents[rec.session.Key] = rec
	sched.mu.Unlock()

	err := sched.Answer(rec.session.Key, "42")
	require.Error(t, err)
}

func TestAnswerDeliversToWaitingSubagent(t *testing.T) {
	sched, st := newTestScheduler(t)
	rec := newSubagentRecord(t, st, PhaseRunning, store.StatusWaitingForAnswer)
	rec.pendingQuestionID = "req-1"
	peer := attachPipe(rec)
	defer peer.Close()
	sched.mu.Lock()
	sched.subagents[rec.session.Key] = rec
	sched.mu.Unlock()

	done := make(chan ipc.WireMessage, 1)
	go func() {
		c := ipc.NewConn(peer)
		msg, err := c.Recv()
		require.NoError(t, err)
		done <- msg
	}()

	require.NoError(t, sched.Answer(rec.session.Key, "yes"))
	msg := <-done
	require.Equal(t, ipc.TypeAnswer, msg.Type)
	rec.mu.Lock()
	require.Empty(t, rec.pendingQuestionID)
	rec.mu.Unlock()
}

func TestCancelSendsCancelMessage(t *testing.T) {
	sched, st := newTestScheduler(t)
	rec := newSubagentRecord(t, st, PhaseRunning, store.StatusRunning)
	peer := attachPipe(rec)
	defer peer.Close()
	sched.mu.Lock()
	sched.subagents[rec.session.Key] = rec
	sched.mu.Unlock()

	done := make(chan ipc.WireMessage, 1)
	go func() {
		c := ipc.NewConn(peer)
		msg, err := c.Recv()
		require.NoError(t, err)
		done <- msg
	}()

	require.NoError(t, sched.Cancel(rec.session.Key))
	require.Equal(t, PhaseCancelled, rec.snapshot().Phase)
	msg := <-done
	require.Equal(t, ipc.TypeCancel, msg.Type)
}

func TestTurnCompleteSetsSummaryFromAssistantContent(t *testing.T) {
	sched, st := newTestScheduler(t)
	rec := newSubagentRecord(t, st, PhaseRunning, store.StatusRunning)
	peer := attachPipe(rec)
	defer peer.Close()
	sched.mu.Lock()
	sched.subagents[rec.session.Key] = rec
	sched.mu.Unlock()

	go sched.supervise(rec)

	c := ipc.NewConn(peer)
	require.NoError(t, c.Send(ipc.TypeTurnComplete, ipc.TurnComplete{
		Message: ipc.WireMessageEntry{Role: "assistant", Content: "found three matching files"},
	}))
	<-rec.done

	info := rec.snapshot()
	require.Equal(t, PhaseDone, info.Phase)
	require.Equal(t, store.StatusCompleted, info.Status)
	require.Equal(t, "found three matching files", info.Summary)

	stored, err := st.GetSession(rec.session.ID)
	require.NoError(t, err)
	require.Equal(t, "found three matching files", stored.Summary)
}

func TestListReturnsEverySpawnedSubagent(t *testing.T) {
	sched, st := newTestScheduler(t)
	a := newSubagentRecord(t, st, PhaseRunning, store.StatusRunning)
	b := newSubagentRecord(t, st, PhasePaused, store.StatusPaused)
	sched.mu.Lock()
	sched.subagents[a.session.Key] = a
	sched.subagents[b.session.Key] = b
	sched.mu.Unlock()

	infos := sched.List()
	require.Len(t, infos, 2)
}
