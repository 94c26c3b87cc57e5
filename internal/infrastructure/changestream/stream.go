package changestream

import (
	"context"
	"encoding/json"

	"github.com/fastygo/todo/domain"
)

// BatchHandler receives decoded change events in stream order.
type BatchHandler func(ctx context.Context, events []domain.ChangeEvent) error

// Stream carries task change events from the change feed to the relay.
type Stream interface {
	Publish(ctx context.Context, event domain.ChangeEvent) error
	// Consume blocks, handing batches of at most batchSize events to handle,
	// until ctx is cancelled.
	Consume(ctx context.Context, batchSize int, handle BatchHandler) error
	Close() error
}

func encode(event domain.ChangeEvent) ([]byte, error) {
	return json.Marshal(event)
}

func decode(payload []byte) (domain.ChangeEvent, error) {
	var event domain.ChangeEvent
	err := json.Unmarshal(payload, &event)
	return event, err
}
