package delayqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goRedis "github.com/redis/go-redis/v9"

	"github.com/fastygo/todo/domain"
)

// claimScript moves up to ARGV[3] due ids from ready to inflight and returns id/body pairs.
var claimScript = goRedis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[3]))
local out = {}
for _, id in ipairs(ids) do
  redis.call('ZREM', KEYS[1], id)
  redis.call('ZADD', KEYS[2], ARGV[2], id)
  table.insert(out, id)
  table.insert(out, redis.call('HGET', KEYS[3], id) or '')
end
return out
`)

// requeueScript moves in-flight ids whose visibility timeout passed back to ready.
var requeueScript = goRedis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', ARGV[1])
for _, id in ipairs(ids) do
  redis.call('ZREM', KEYS[2], id)
  redis.call('ZADD', KEYS[1], ARGV[1], id)
end
return #ids
`)

// RedisQueue keeps pending messages in a sorted set scored by the time they
// become visible, in-flight messages in a second sorted set scored by their
// visibility deadline, and bodies in a hash.
type RedisQueue struct {
	client   goRedis.UniversalClient
	ready    string
	inflight string
	bodies   string
	opts     options
}

// NewRedisQueue creates a queue whose keys live under prefix.
func NewRedisQueue(client goRedis.UniversalClient, prefix string, opts ...Option) *RedisQueue {
	if prefix == "" {
		prefix = "expiry-queue"
	}
	return &RedisQueue{
		client:   client,
		ready:    prefix + ":ready",
		inflight: prefix + ":inflight",
		bodies:   prefix + ":bodies",
		opts:     buildOptions(opts),
	}
}

func (q *RedisQueue) Send(ctx context.Context, msg domain.ExpiryMessage, delay time.Duration) error {
	if err := validateDelay(delay); err != nil {
		return err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	visibleAt := q.opts.now().Add(delay).UnixMilli()
	_, err = q.client.TxPipelined(ctx, func(pipe goRedis.Pipeliner) error {
		pipe.HSet(ctx, q.bodies, id, body)
		pipe.ZAdd(ctx, q.ready, goRedis.Z{Score: float64(visibleAt), Member: id})
		return nil
	})
	return err
}

func (q *RedisQueue) Receive(ctx context.Context, max int) ([]Delivery, error) {
	if max <= 0 {
		max = 10
	}
	now := q.opts.now()
	res, err := claimScript.Run(ctx, q.client,
		[]string{q.ready, q.inflight, q.bodies},
		now.UnixMilli(),
		now.Add(q.opts.visibility).UnixMilli(),
		max,
	).StringSlice()
	if err != nil {
		if err == goRedis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("claim messages: %w", err)
	}

	deliveries := make([]Delivery, 0, len(res)/2)
	for i := 0; i+1 < len(res); i += 2 {
		deliveries = append(deliveries, Delivery{ID: res[i], Body: []byte(res[i+1])})
	}
	return deliveries, nil
}

func (q *RedisQueue) Ack(ctx context.Context, d Delivery) error {
	_, err := q.client.TxPipelined(ctx, func(pipe goRedis.Pipeliner) error {
		pipe.ZRem(ctx, q.inflight, d.ID)
		pipe.HDel(ctx, q.bodies, d.ID)
		return nil
	})
	return err
}

func (q *RedisQueue) RequeueExpired(ctx context.Context) (int, error) {
	n, err := requeueScript.Run(ctx, q.client,
		[]string{q.ready, q.inflight},
		q.opts.now().UnixMilli(),
	).Int()
	if err != nil && err != goRedis.Nil {
		return 0, err
	}
	return n, nil
}

// Depth returns the number of ready and in-flight messages.
func (q *RedisQueue) Depth(ctx context.Context) (ready, inflight int64, err error) {
	ready, err = q.client.ZCard(ctx, q.ready).Result()
	if err != nil {
		return 0, 0, err
	}
	inflight, err = q.client.ZCard(ctx, q.inflight).Result()
	return ready, inflight, err
}

var _ Queue = (*RedisQueue)(nil)
