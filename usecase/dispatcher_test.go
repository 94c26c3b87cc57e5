package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fastygo/todo/domain"
)

type unknownTrigger struct{}

func (unknownTrigger) triggerName() string { return "unknown" }

func TestDispatchRoutesEachVariant(t *testing.T) {
	var got []string
	d := NewDispatcher(
		WithStreamHandler(func(_ context.Context, b StreamBatch) error {
			got = append(got, "stream")
			assert.Len(t, b.Events, 1)
			return nil
		}),
		WithQueueHandler(func(_ context.Context, b QueueBatch) error {
			got = append(got, "queue")
			assert.Len(t, b.Messages, 2)
			return nil
		}),
		WithAuthHandler(func(_ context.Context, a AuthSignIn) error {
			got = append(got, "auth:"+a.Event.Username)
			return nil
		}),
	)
	ctx := context.Background()

	require.NoError(t, d.Dispatch(ctx, StreamBatch{Events: []domain.ChangeEvent{{Kind: domain.ChangeInsert}}}))
	require.NoError(t, d.Dispatch(ctx, QueueBatch{Messages: make([]domain.ExpiryMessage, 2)}))
	require.NoError(t, d.Dispatch(ctx, AuthSignIn{Event: domain.AuthEvent{Username: "alice"}}))

	assert.Equal(t, []string{"stream", "queue", "auth:alice"}, got)
}

func TestDispatchErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown variant", func(t *testing.T) {
		err := NewDispatcher().Dispatch(ctx, unknownTrigger{})
		assert.ErrorIs(t, err, domain.ErrUnknownTrigger)
	})

	t.Run("unregistered handler", func(t *testing.T) {
		err := NewDispatcher().Dispatch(ctx, QueueBatch{})
		assert.EqualError(t, err, "queue handler not registered")
	})

	t.Run("handler error is returned", func(t *testing.T) {
		boom := errors.New("boom")
		d := NewDispatcher(WithStreamHandler(func(context.Context, StreamBatch) error { return boom }))
		assert.ErrorIs(t, d.Dispatch(ctx, StreamBatch{}), boom)
	})
}

type recordingNotifier struct {
	calls int
	err   error
}

func (n *recordingNotifier) Publish(context.Context, string, string, string) error {
	n.calls++
	return n.err
}

func TestNotifyBestEffort(t *testing.T) {
	n := &recordingNotifier{err: errors.New("unreachable")}
	NotifyBestEffort(context.Background(), n, zap.NewNop(), "topic", "subject", "message")
	assert.Equal(t, 1, n.calls)

	NotifyBestEffort(context.Background(), nil, zap.NewNop(), "topic", "subject", "message")
}
