package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/internal/infrastructure/delayqueue"
)

func TestReaperSchedules(t *testing.T) {
	tests := []struct {
		schedule string
		valid    bool
	}{
		{"", true},
		{"@every 30s", true},
		{"@hourly", true},
		{"*/5 * * * *", true},
		{"0 */5 * * * *", false},
		{"every now and then", false},
	}
	for _, tt := range tests {
		t.Run(tt.schedule, func(t *testing.T) {
			_, err := NewReaper(&fakeReceiver{}, tt.schedule, nil)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestReaperReap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r, err := NewReaper(&fakeReceiver{requeued: 3}, "", zap.New(core))
	require.NoError(t, err)

	assert.Equal(t, 3, r.Reap(context.Background()))
	assert.Equal(t, 1, logs.FilterMessage("redelivering unacknowledged messages").Len())
}

func TestReaperReapError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r, err := NewReaper(&fakeReceiver{requeueErr: errors.New("redis down")}, "@every 1m", zap.New(core))
	require.NoError(t, err)

	assert.Zero(t, r.Reap(context.Background()))
	assert.Equal(t, 1, logs.FilterMessage("requeue of expired deliveries failed").Len())
}

func TestReaperRedeliversUnackedMessage(t *testing.T) {
	clock := newTestClock(time.Unix(1_700_000_000, 0))
	queue := delayqueue.NewMemoryQueue(
		delayqueue.WithClock(clock.Now),
		delayqueue.WithVisibilityTimeout(30*time.Second),
	)
	ctx := context.Background()
	require.NoError(t, queue.Send(ctx, domain.ExpiryMessage{TaskID: "t-1", OwnerID: "u-1"}, 0))

	first, err := queue.Receive(ctx, 10)
	require.NoError(t, err)
	require.Len(t, first, 1)

	r, err := NewReaper(queue, "", nil)
	require.NoError(t, err)
	assert.Zero(t, r.Reap(ctx), "still within the visibility timeout")

	clock.Advance(30 * time.Second)
	assert.Equal(t, 1, r.Reap(ctx))

	again, err := queue.Receive(ctx, 10)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, first[0].ID, again[0].ID)
}

func TestReaperStartStop(t *testing.T) {
	r, err := NewReaper(&fakeReceiver{}, "@every 1h", nil)
	require.NoError(t, err)
	r.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r.Stop(ctx)

	var nilReaper *Reaper
	nilReaper.Start()
	nilReaper.Stop(ctx)
}
