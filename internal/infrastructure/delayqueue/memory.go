package delayqueue

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fastygo/todo/domain"
)

type memoryEntry struct {
	id       string
	body     []byte
	due      time.Time
	inflight bool
}

// MemoryQueue is an in-process delay queue driven by the configured clock.
type MemoryQueue struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	opts    options
}

func NewMemoryQueue(opts ...Option) *MemoryQueue {
	return &MemoryQueue{
		entries: make(map[string]*memoryEntry),
		opts:    buildOptions(opts),
	}
}

func (q *MemoryQueue) Send(_ context.Context, msg domain.ExpiryMessage, delay time.Duration) error {
	if err := validateDelay(delay); err != nil {
		return err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	id := uuid.NewString()
	q.entries[id] = &memoryEntry{id: id, body: body, due: q.opts.now().Add(delay)}
	return nil
}

func (q *MemoryQueue) Receive(_ context.Context, max int) ([]Delivery, error) {
	if max <= 0 {
		max = 10
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.opts.now()
	var due []*memoryEntry
	for _, e := range q.entries {
		if !e.inflight && !e.due.After(now) {
			due = append(due, e)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].due.Before(due[j].due) })
	if len(due) > max {
		due = due[:max]
	}

	deliveries := make([]Delivery, 0, len(due))
	for _, e := range due {
		e.inflight = true
		e.due = now.Add(q.opts.visibility)
		deliveries = append(deliveries, Delivery{ID: e.id, Body: e.body})
	}
	return deliveries, nil
}

func (q *MemoryQueue) Ack(_ context.Context, d Delivery) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.entries, d.ID)
	return nil
}

func (q *MemoryQueue) RequeueExpired(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.opts.now()
	var n int
	for _, e := range q.entries {
		if e.inflight && !e.due.After(now) {
			e.inflight = false
			n++
		}
	}
	return n, nil
}

// Len reports messages not yet acknowledged.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

var _ Queue = (*MemoryQueue)(nil)
