package agentrt

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
)

// pendingRequest is what the main loop's outbound relay goroutine drains
// and forwards over the pipe.
type pendingRequest struct {
	requestID string
	action    string
	params    json.RawMessage
}

// Bridge lets synchronous tool code ask the supervisor to perform a
// privileged action and block until the reply arrives, without stalling
// the rest of the turn loop: unlike the async-Rust original, a Go
// goroutine blocked on a channel receive doesn't need a special
// block-in-place escape hatch — the scheduler already parks it for free.
type Bridge struct {
	outbound chan pendingRequest
	counter  uint64

	mu      sync.Mutex
	waiters map[string]chan bridgeReply
}

// bridgeReply is what a ProcessResponse turns into before it's handed back
// to the tool call that's blocked on Request: either a result payload or
// the error string the supervisor reported, never both.
type bridgeReply struct {
	result json.RawMessage
	err    string
}

// NewBridge creates a bridge. outbound has enough buffer that a burst of
// concurrent tool calls doesn't stall on send.
func NewBridge() *Bridge {
	return &Bridge{
		outbound: make(chan pendingRequest, 64),
		waiters:  make(map[string]chan bridgeReply),
	}
}

// Outbound is drained by the turn loop's relay goroutine, which forwards
// each request over the IPC connection as a ProcessRequest.
func (b *Bridge) Outbound() <-chan pendingRequest { return b.outbound }

// Request sends action to the supervisor and blocks until Deliver is
// called with the matching request ID, or an error if the bridge is torn
// down first or the supervisor reported one.
func (b *Bridge) Request(action string, params json.RawMessage) (json.RawMessage, error) {
	id := fmt.Sprintf("req-%d", atomic.AddUint64(&b.counter, 1))
	reply := make(chan bridgeReply, 1)

	b.mu.Lock()
	b.waiters[id] = reply
	b.mu.Unlock()

	select {
	case b.outbound <- pendingRequest{requestID: id, action: action, params: params}:
	default:
		b.mu.Lock()
		delete(b.waiters, id)
		b.mu.Unlock()
		return nil, fmt.Errorf("gateway bridge saturated, dropping request for %s", action)
	}

	resp, ok := <-reply
	if !ok {
		return nil, fmt.Errorf("gateway bridge closed before reply to %s", action)
	}
	if resp.err != "" {
		return nil, fmt.Errorf("%s: %s", action, resp.err)
	}
	return resp.result, nil
}

// Deliver routes a ProcessResponse back to the tool call waiting on it.
// Responses may arrive out of request order; each waiter is keyed
// independently by request ID.
func (b *Bridge) Deliver(requestID string, result json.RawMessage, errMsg string) bool {
	b.mu.Lock()
	reply, ok := b.waiters[requestID]
	if ok {
		delete(b.waiters, requestID)
	}
	b.mu.Unlock()
	if !ok {
		return false
	}
	reply <- bridgeReply{result: result, err: errMsg}
	close(reply)
	return true
}

// Close releases every still-pending waiter with an error, used when the
// IPC connection drops mid-turn.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, reply := range b.waiters {
		close(reply)
		delete(b.waiters, id)
	}
}
