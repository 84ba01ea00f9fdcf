package eventbus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	b := New[string]()
	a := b.Subscribe()
	c := b.Subscribe()

	b.Publish("hello")

	require.Equal(t, "hello", <-a.Events())
	require.Equal(t, "hello", <-c.Events())
}

func TestSubscriberOnlySeesPostSubscriptionEvents(t *testing.T) {
	b := New[int]()
	b.Publish(1)
	sub := b.Subscribe()
	b.Publish(2)

	require.Equal(t, 2, <-sub.Events())
}

func TestClosedSubscriberStopsReceiving(t *testing.T) {
	b := New[int]()
	sub := b.Subscribe()
	sub.Close()
	require.Equal(t, 0, b.SubscriberCount())
	b.Publish(1) // must not panic or block
}

func TestLaggedSignaledOnOverflow(t *testing.T) {
	b := New[int]()
	sub := b.Subscribe()

	for i := 0; i < subscriberCapacity+10; i++ {
		b.Publish(i)
	}

	select {
	case <-sub.Lagged():
	default:
		t.Fatal("expected lag signal after overflowing subscriber capacity")
	}
}
