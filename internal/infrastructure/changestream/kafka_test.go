//go:build integration

package changestream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcKafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	"go.uber.org/zap/zaptest"

	"github.com/fastygo/todo/domain"
)

const (
	testTopic      = "task-changes-it"
	testGroup      = "relay-it"
	testPartitions = 3
)

func startKafka(t *testing.T) []string {
	t.Helper()
	ctx := context.Background()

	container, err := tcKafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tcKafka.WithClusterID("todo-it"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	return brokers
}

// committedOffsets sums the group's committed offsets over every partition.
func committedOffsets(t *testing.T, brokers []string) int64 {
	t.Helper()
	client := &kafka.Client{Addr: kafka.TCP(brokers...), Timeout: 5 * time.Second}
	partitions := make([]int, testPartitions)
	for i := range partitions {
		partitions[i] = i
	}
	resp, err := client.OffsetFetch(context.Background(), &kafka.OffsetFetchRequest{
		GroupID: testGroup,
		Topics:  map[string][]int{testTopic: partitions},
	})
	if err != nil {
		return -1
	}
	var total int64
	for _, p := range resp.Topics[testTopic] {
		if p.CommittedOffset > 0 {
			total += p.CommittedOffset
		}
	}
	return total
}

type collector struct {
	mu     sync.Mutex
	events []domain.ChangeEvent
}

func (c *collector) handle(err error) BatchHandler {
	return func(_ context.Context, events []domain.ChangeEvent) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.events = append(c.events, events...)
		return err
	}
}

func (c *collector) snapshot() []domain.ChangeEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.ChangeEvent(nil), c.events...)
}

func consumeInBackground(t *testing.T, stream *KafkaStream, handle BatchHandler) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- stream.Consume(ctx, 10, handle) }()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			select {
			case err := <-done:
				assert.NoError(t, err)
			case <-time.After(30 * time.Second):
				t.Error("consumer did not stop")
			}
		})
	}
	t.Cleanup(stop)
	return stop
}

func statusEvent(kind domain.ChangeKind, owner, id, status string) domain.ChangeEvent {
	return domain.ChangeEvent{
		Kind:     kind,
		NewImage: &domain.Task{OwnerID: owner, TaskID: id, Status: status, Deadline: 300_000},
	}
}

func TestKafkaStream(t *testing.T) {
	brokers := startKafka(t)
	ctx := context.Background()

	stream, err := NewKafkaStream(KafkaConfig{
		Brokers:    brokers,
		Topic:      testTopic,
		GroupID:    testGroup,
		Partitions: testPartitions,
		Linger:     50 * time.Millisecond,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = stream.Close() })

	stream.EnsureTopic(ctx)
	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	require.NoError(t, err)
	parts, err := conn.ReadPartitions(testTopic)
	_ = conn.Close()
	require.NoError(t, err)
	assert.Len(t, parts, testPartitions)

	published := []domain.ChangeEvent{
		statusEvent(domain.ChangeInsert, "alice", "t-1", domain.StatusPending),
		statusEvent(domain.ChangeInsert, "bob", "t-2", domain.StatusPending),
		statusEvent(domain.ChangeModify, "alice", "t-1", "Done"),
		statusEvent(domain.ChangeModify, "alice", "t-1", domain.StatusExpired),
	}
	for _, event := range published {
		require.NoError(t, stream.Publish(ctx, event))
	}

	// A failing handler must not hold the batch back: its offsets are committed anyway.
	failing := &collector{}
	stop := consumeInBackground(t, stream, failing.handle(errors.New("relay unavailable")))
	require.Eventually(t, func() bool {
		return len(failing.snapshot()) == len(published)
	}, 60*time.Second, 100*time.Millisecond)
	require.Eventually(t, func() bool {
		return committedOffsets(t, brokers) == int64(len(published))
	}, 30*time.Second, 200*time.Millisecond)
	stop()

	var aliceStatuses []string
	for _, event := range failing.snapshot() {
		require.NotNil(t, event.NewImage)
		if event.Key() == "alice:t-1" {
			aliceStatuses = append(aliceStatuses, event.NewImage.Status)
		}
	}
	assert.Equal(t, []string{domain.StatusPending, "Done", domain.StatusExpired}, aliceStatuses,
		"events of one task share a partition and keep their order")

	// The group resumes after the committed offsets, so only new events arrive.
	require.NoError(t, stream.Publish(ctx, domain.ChangeEvent{
		Kind:     domain.ChangeRemove,
		OldImage: &domain.Task{OwnerID: "bob", TaskID: "t-2"},
	}))
	resumed := &collector{}
	consumeInBackground(t, stream, resumed.handle(nil))
	require.Eventually(t, func() bool {
		return len(resumed.snapshot()) > 0
	}, 60*time.Second, 100*time.Millisecond)

	got := resumed.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, domain.ChangeRemove, got[0].Kind)
	assert.Equal(t, "bob:t-2", got[0].Key())
}
