package agentrt

import (
	"fmt"
	"sync"

	"github.com/nestmesh/nest/internal/logging"
	"go.uber.org/zap"
)

// errorSignatureLen bounds how much of a failure message identifies its
// "kind" for repeat detection, so two distinct errors from the same tool
// that happen to share a prefix still count as one signature.
const errorSignatureLen = 120

// Breaker tracks, per tool name, how many consecutive times the same
// failure signature has repeated. Unlike pkg/fabric's timeout-based
// open/half-open/closed state machine, this is a plain repeat counter: the
// turn loop only needs to detect "the agent is stuck retrying the same
// failure," not throttle a flaky downstream service.
type Breaker struct {
	threshold int

	mu    sync.Mutex
	state map[string]*toolState
}

type toolState struct {
	signature string
	count     int
}

// NewBreaker creates a breaker that trips after `threshold` consecutive
// identical-signature failures for the same tool.
func NewBreaker(threshold int) *Breaker {
	return &Breaker{threshold: threshold, state: make(map[string]*toolState)}
}

func signature(errText string) string {
	if len(errText) > errorSignatureLen {
		return errText[:errorSignatureLen]
	}
	return errText
}

// RecordFailure registers a failed tool result and reports whether the
// breaker has now tripped for this tool (i.e. the same failure signature
// has repeated threshold times in a row), along with that repeat count.
func (b *Breaker) RecordFailure(toolName, errText string) (tripped bool, count int) {
	sig := signature(errText)

	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.state[toolName]
	if !ok || st.signature != sig {
		st = &toolState{signature: sig, count: 0}
		b.state[toolName] = st
	}
	st.count++
	if st.count >= b.threshold {
		logging.Warn("tool stuck on repeated failure",
			zap.String("tool", toolName), zap.Int("count", st.count))
		return true, st.count
	}
	return false, st.count
}

// RecordSuccess clears every failure counter for a tool name: a success
// resets the slate, regardless of which signature it was stuck on.
func (b *Breaker) RecordSuccess(toolName string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.state, toolName)
}

// StrategyHint is the synthetic text injected into a tool result when the
// breaker trips, nudging the model to change approach instead of retrying
// identically forever.
func StrategyHint(toolName string, count int) string {
	return fmt.Sprintf(
		"The %s tool has encountered this exact error %d times in a row. "+
			"Stop retrying it unchanged — try a different tool, a different input, or explain "+
			"the blocker to the user instead.", toolName, count)
}
