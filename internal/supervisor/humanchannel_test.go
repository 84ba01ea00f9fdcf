package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/nestmesh/nest/internal/eventbus"
	"github.com/stretchr/testify/require"
)

func TestAskWithNoBoundChannelReturnsFallbackWithoutPublishing(t *testing.T) {
	h := NewHumanChannel()
	bus := eventbus.New[TurnEvent]()
	sub := bus.Subscribe()
	defer sub.Close()

	answer, err := h.Ask(context.Background(), bus, "main", "anyone home?", "", true)
	require.NoError(t, err)
	require.Equal(t, noChannelFallback, answer)

	select {
	case evt := <-sub.Events():
		t.Fatalf("expected no event published, got %+v", evt)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestAskNonBlockingReturnsImmediatelyAndStillPublishes(t *testing.T) {
	h := NewHumanChannel()
	h.Bind()
	bus := eventbus.New[TurnEvent]()
	sub := bus.Subscribe()
	defer sub.Close()

	answer, err := h.Ask(context.Background(), bus, "main", "fyi", "background info", false)
	require.NoError(t, err)
	require.Equal(t, sentAcknowledgement, answer)

	evt := <-sub.Events()
	require.Equal(t, EventQuestion, evt.Kind)
	require.Equal(t, "fyi", evt.Text)
	require.Equal(t, "background info", evt.Context)
}

func TestAskBlockingWaitsForAnswer(t *testing.T) {
	h := NewHumanChannel()
	h.Bind()
	bus := eventbus.New[TurnEvent]()
	sub := bus.Subscribe()
	defer sub.Close()

	type result struct {
		answer string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		answer, err := h.Ask(context.Background(), bus, "main", "what next?", "", true)
		done <- result{answer, err}
	}()

	evt := <-sub.Events()
	require.Equal(t, EventQuestion, evt.Kind)
	require.True(t, h.Answer(evt.RequestID, "do the next thing"))

	select {
	case r := <-done:
		require.NoError(t, r.err)
		require.Equal(t, "do the next thing", r.answer)
	case <-time.After(time.Second):
		t.Fatal("Ask did not return after Answer was delivered")
	}
}

func TestAnswerOnUnknownRequestIDReportsFalse(t *testing.T) {
	h := NewHumanChannel()
	require.False(t, h.Answer("no-such-request", "too late"))
}

func TestAskBlockingRespectsContextCancellation(t *testing.T) {
	h := NewHumanChannel()
	h.Bind()
	bus := eventbus.New[TurnEvent]()
	sub := bus.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := h.Ask(ctx, bus, "main", "still there?", "", true)
		done <- err
	}()

	<-sub.Events()
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Ask did not return after context cancellation")
	}
}
