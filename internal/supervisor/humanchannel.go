package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nestmesh/nest/internal/eventbus"
)

// askTimeout bounds how long a blocking AskOrchestrator waits for a human
// reply before falling back to a canned answer, matching spec.md §4.8's
// ~600s ceiling.
const askTimeout = 10 * time.Minute

const (
	noChannelFallback = "no channel; proceed with your own best judgment"
	askTimeoutFallback = "no response arrived in time; proceed with your own best judgment"
	sentAcknowledgement = "question sent to the orchestrator; continuing without waiting for a reply"
)

// HumanChannel models the "active bridge has an active chat" condition
// spec.md §4.8 asks AskOrchestrator to branch on: whether some outer
// surface (a CLI REPL, a chat UI) is currently attached and able to relay
// a subagent's question to an actual person, and receive their reply.
type HumanChannel struct {
	mu      sync.Mutex
	bound   bool
	waiters map[string]chan string
}

// NewHumanChannel creates an unbound channel; Ask returns the canned
// no-channel fallback until Bind is called.
func NewHumanChannel() *HumanChannel {
	return &HumanChannel{waiters: make(map[string]chan string)}
}

// Bind marks a human surface as attached.
func (h *HumanChannel) Bind() {
	h.mu.Lock()
	h.bound = true
	h.mu.Unlock()
}

// Unbind marks the human surface as detached; any still-pending Ask calls
// keep waiting out their timeout rather than failing immediately, since a
// surface reconnecting mid-wait is a normal occurrence.
func (h *HumanChannel) Unbind() {
	h.mu.Lock()
	h.bound = false
	h.mu.Unlock()
}

// Ask delivers question to the bound surface via bus, then either blocks
// for a reply (up to askTimeout) or returns an immediate acknowledgement,
// per blocking. With no surface bound, it returns a canned fallback
// without publishing anything.
func (h *HumanChannel) Ask(ctx context.Context, bus *eventbus.Bus[TurnEvent], sessionKey, question, background string, blocking bool) (string, error) {
	h.mu.Lock()
	bound := h.bound
	h.mu.Unlock()
	if !bound {
		return noChannelFallback, nil
	}

	requestID := uuid.NewString()
	bus.Publish(TurnEvent{
		Kind:       EventQuestion,
		SessionKey: sessionKey,
		RequestID:  requestID,
		Text:       question,
		Context:    background,
	})

	if !blocking {
		return sentAcknowledgement, nil
	}

	reply := make(chan string, 1)
	h.mu.Lock()
	h.waiters[requestID] = reply
	h.mu.Unlock()

	timer := time.NewTimer(askTimeout)
	defer timer.Stop()

	select {
	case answer := <-reply:
		return answer, nil
	case <-timer.C:
		h.clearWaiter(requestID)
		return askTimeoutFallback, nil
	case <-ctx.Done():
		h.clearWaiter(requestID)
		return "", ctx.Err()
	}
}

func (h *HumanChannel) clearWaiter(requestID string) {
	h.mu.Lock()
	delete(h.waiters, requestID)
	h.mu.Unlock()
}

// Answer delivers a human's reply to a still-waiting Ask call, identified
// by the request ID that accompanied the published Question event.
// Reports false if no call is waiting on that ID (already answered, timed
// out, or unknown).
func (h *HumanChannel) Answer(requestID, answer string) bool {
	h.mu.Lock()
	reply, ok := h.waiters[requestID]
	if ok {
		delete(h.waiters, requestID)
	}
	h.mu.Unlock()
	if !ok {
		return false
	}
	reply <- answer
	return true
}
