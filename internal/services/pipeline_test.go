package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/internal/infrastructure/changestream"
	"github.com/fastygo/todo/internal/infrastructure/delayqueue"
	"github.com/fastygo/todo/repository/changefeed"
	"github.com/fastygo/todo/repository/memory"
	"github.com/fastygo/todo/usecase"
	"github.com/fastygo/todo/usecase/expiry"
	"github.com/fastygo/todo/usecase/relay"
	taskUC "github.com/fastygo/todo/usecase/task"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{now: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type published struct {
	topic, subject, message string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []published
}

func (n *recordingNotifier) Publish(_ context.Context, topic, subject, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, published{topic: topic, subject: subject, message: message})
	return nil
}

func (n *recordingNotifier) messages() []published {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]published(nil), n.sent...)
}

type pipeline struct {
	clock    *testClock
	tasks    *taskUC.UseCase
	stream   *changestream.MemoryStream
	queue    *delayqueue.MemoryQueue
	notifier *recordingNotifier
	poller   *QueuePoller
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()

	logger := zap.NewNop()
	clock := newTestClock(time.Unix(0, 0).UTC())
	stream := changestream.NewMemoryStream(64)
	queue := delayqueue.NewMemoryQueue(delayqueue.WithClock(clock.Now))
	notifier := &recordingNotifier{}

	store := changefeed.New(memory.NewTaskRepository(), stream, logger)
	dispatcher := usecase.NewDispatcher(
		usecase.WithStreamHandler(RelayHandler(relay.New(queue, logger, clock.Now), logger)),
		usecase.WithQueueHandler(ExpiryHandler(expiry.New(store, notifier, "task-notifications", logger), logger)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = NewStreamConsumer(stream, dispatcher, 10, logger).Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return &pipeline{
		clock:    clock,
		tasks:    taskUC.New(store, logger, taskUC.WithClock(clock.Now)),
		stream:   stream,
		queue:    queue,
		notifier: notifier,
		poller:   NewQueuePoller(queue, dispatcher, PollerConfig{Interval: time.Millisecond, BatchSize: 10}, logger),
	}
}

func (p *pipeline) waitForQueue(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return p.stream.Pending() == 0 && p.queue.Len() == n
	}, 2*time.Second, 5*time.Millisecond)
}

func TestPipelineExpiresTaskAtDeadline(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	created, err := p.tasks.CreateTask(ctx, "owner-1", "Buy milk")
	require.NoError(t, err)
	assert.Equal(t, int64(300000), created.Deadline)
	p.waitForQueue(t, 1)

	p.clock.Advance(299 * time.Second)
	n, err := p.poller.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "message must stay invisible before the deadline")

	p.clock.Advance(time.Second)
	n, err = p.poller.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := p.tasks.GetTask(ctx, "owner-1", created.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, got.Status)
	assert.Equal(t, "Buy milk", got.Description)

	sent := p.notifier.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "task-notifications", sent[0].topic)
	assert.Contains(t, sent[0].message, created.TaskID)
}

func TestPipelineExpiryLoopSettles(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	created, err := p.tasks.CreateTask(ctx, "owner-1", "Walk the dog")
	require.NoError(t, err)
	p.waitForQueue(t, 1)

	p.clock.Advance(domain.DeadlineWindow)
	_, err = p.poller.Poll(ctx)
	require.NoError(t, err)

	// The EXPIRED write is itself a change and schedules one immediate redelivery.
	p.waitForQueue(t, 1)
	_, err = p.poller.Poll(ctx)
	require.NoError(t, err)

	// Re-expiring changes nothing, so no further event reaches the relay.
	p.waitForQueue(t, 0)
	got, err := p.tasks.GetTask(ctx, "owner-1", created.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, got.Status)
	assert.Len(t, p.notifier.messages(), 2)
}

func TestPipelineDeletedTaskExpiresQuietly(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	created, err := p.tasks.CreateTask(ctx, "owner-1", "Call mom")
	require.NoError(t, err)
	p.waitForQueue(t, 1)

	require.NoError(t, p.tasks.DeleteTask(ctx, "owner-1", created.TaskID))
	p.waitForQueue(t, 1)

	p.clock.Advance(domain.DeadlineWindow)
	n, err := p.poller.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, p.queue.Len())

	_, err = p.tasks.GetTask(ctx, "owner-1", created.TaskID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}
