package delayqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goRedis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/todo/domain"
)

// fakeClock is a manually advanced time source shared by the queue tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newRedisQueue(t *testing.T, clock *fakeClock) (*RedisQueue, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := goRedis.NewClient(&goRedis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisQueue(client, "test-queue", WithClock(clock.Now), WithVisibilityTimeout(30*time.Second)), srv
}

func TestRedisQueue(t *testing.T) {
	runQueueContract(t, func(t *testing.T, clock *fakeClock) Queue {
		q, _ := newRedisQueue(t, clock)
		return q
	})
}

func TestRedisQueueKeys(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	q, srv := newRedisQueue(t, clock)

	require.NoError(t, q.Send(ctx, domain.ExpiryMessage{TaskID: "t-1", OwnerID: "alice"}, 10*time.Second))

	assert.True(t, srv.Exists("test-queue:ready"))
	assert.True(t, srv.Exists("test-queue:bodies"))

	ready, inflight, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, ready)
	assert.EqualValues(t, 0, inflight)

	clock.Advance(10 * time.Second)
	deliveries, err := q.Receive(ctx, 10)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)

	ready, inflight, err = q.Depth(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, ready)
	assert.EqualValues(t, 1, inflight)

	require.NoError(t, q.Ack(ctx, deliveries[0]))
	assert.False(t, srv.Exists("test-queue:inflight"))
	assert.False(t, srv.Exists("test-queue:bodies"))
}
