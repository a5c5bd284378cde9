package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_PublishReachesSubscribers(t *testing.T) {
	b := NewBroker[string]()
	defer b.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := b.Subscribe(ctx)
	second := b.Subscribe(ctx)
	assert.Equal(t, 2, b.GetSubscriberCount())

	b.Publish(UpdatedEvent, "hello")

	for _, ch := range []<-chan Event[string]{first, second} {
		select {
		case ev := <-ch:
			assert.Equal(t, UpdatedEvent, ev.Type)
			assert.Equal(t, "hello", ev.Payload)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestBroker_CancelUnsubscribes(t *testing.T) {
	b := NewBroker[int]()
	defer b.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	ch := b.Subscribe(ctx)
	cancel()

	require.Eventually(t, func() bool {
		return b.GetSubscriberCount() == 0
	}, time.Second, 5*time.Millisecond)

	_, ok := <-ch
	assert.False(t, ok)
}

func TestBroker_SubscribeAfterShutdown(t *testing.T) {
	b := NewBroker[int]()
	b.Shutdown()
	b.Shutdown()

	_, ok := <-b.Subscribe(context.Background())
	assert.False(t, ok)
	b.Publish(CreatedEvent, 1)
}
