package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kaku/domain/events"
)

func event(id string) events.DomainEvent {
	return events.NewModelEvent(events.ModelThought, events.ActionCreated, id, "project", time.Unix(0, 0))
}

func TestDispatcher_DeliversInOrderToEverySubscriber(t *testing.T) {
	d := NewDispatcher(16, zap.NewNop())

	var mu sync.Mutex
	var first, second []string
	d.Subscribe(func(_ context.Context, e events.DomainEvent) error {
		mu.Lock()
		defer mu.Unlock()
		first = append(first, e.GetAggregateID())
		return nil
	})
	d.Subscribe(func(_ context.Context, e events.DomainEvent) error {
		mu.Lock()
		defer mu.Unlock()
		second = append(second, e.GetAggregateID())
		return errors.New("subscriber failure is logged only")
	})

	require.NoError(t, d.Publish(context.Background(), event("a"), event("b")))
	require.NoError(t, d.Publish(context.Background(), event("c")))
	require.NoError(t, d.Close(context.Background()))

	assert.Equal(t, []string{"a", "b", "c"}, first)
	assert.Equal(t, []string{"a", "b", "c"}, second)
}

func TestDispatcher_PublishAfterClose(t *testing.T) {
	d := NewDispatcher(1, zap.NewNop())
	require.NoError(t, d.Close(context.Background()))
	require.NoError(t, d.Close(context.Background()))

	assert.ErrorIs(t, d.Publish(context.Background(), event("a")), ErrDispatcherClosed)
}

func TestDispatcher_FullQueueDropsInsteadOfBlocking(t *testing.T) {
	d := NewDispatcher(1, zap.NewNop())
	block := make(chan struct{})
	started := make(chan struct{}, 1)
	d.Subscribe(func(context.Context, events.DomainEvent) error {
		started <- struct{}{}
		<-block
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), event("a")))
	<-started
	require.NoError(t, d.Publish(context.Background(), event("b")))
	assert.ErrorIs(t, d.Publish(context.Background(), event("c")), ErrQueueFull)

	close(block)
	require.NoError(t, d.Close(context.Background()))
}

type capture struct {
	mu  sync.Mutex
	ids []string
}

func (c *capture) Publish(_ context.Context, evts ...events.DomainEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range evts {
		c.ids = append(c.ids, e.GetAggregateID())
	}
	return nil
}

func TestForward(t *testing.T) {
	d := NewDispatcher(4, zap.NewNop())
	c := &capture{}
	d.Subscribe(Forward(c))
	d.Subscribe(LogHandler(zap.NewNop()))

	require.NoError(t, d.Publish(context.Background(), event("x")))
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, []string{"x"}, c.ids)
}
