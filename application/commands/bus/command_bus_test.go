package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type pingCommand struct {
	Name string
}

func (c pingCommand) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

type recorder struct {
	mu    sync.Mutex
	names []string
	errs  []error
}

func (r *recorder) ObserveCommand(name string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	r.errs = append(r.errs, err)
}

func TestCommandBus_SendDispatches(t *testing.T) {
	rec := &recorder{}
	b := NewCommandBus(MetricsMiddleware(rec), TracingMiddleware(noop.NewTracerProvider().Tracer("test")))

	var got string
	require.NoError(t, b.Register(pingCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
		got = cmd.(pingCommand).Name
		return nil
	})))

	require.NoError(t, b.Send(context.Background(), pingCommand{Name: "hello"}))

	assert.Equal(t, "hello", got)
	assert.Equal(t, []string{"pingCommand"}, rec.names)
}

func TestCommandBus_ValidationFailsBeforeHandler(t *testing.T) {
	b := NewCommandBus()
	called := false
	require.NoError(t, b.Register(pingCommand{}, CommandHandlerFunc(func(context.Context, Command) error {
		called = true
		return nil
	})))

	err := b.Send(context.Background(), pingCommand{})

	assert.Error(t, err)
	assert.False(t, called)
}

func TestCommandBus_WrapsHandlerError(t *testing.T) {
	sentinel := errors.New("boom")
	b := NewCommandBus()
	require.NoError(t, b.Register(pingCommand{}, CommandHandlerFunc(func(context.Context, Command) error {
		return sentinel
	})))

	err := b.Send(context.Background(), pingCommand{Name: "x"})

	assert.ErrorIs(t, err, sentinel)
}

func TestCommandBus_UnknownAndDuplicate(t *testing.T) {
	b := NewCommandBus()
	assert.ErrorIs(t, b.Send(context.Background(), pingCommand{Name: "x"}), ErrHandlerNotFound)

	h := CommandHandlerFunc(func(context.Context, Command) error { return nil })
	require.NoError(t, b.Register(pingCommand{}, h))
	assert.Error(t, b.Register(pingCommand{}, h))
}
