package changestream

import (
	"context"
	"errors"
	"sync"

	"github.com/fastygo/todo/domain"
)

// ErrStreamClosed is returned by Publish after Close.
var ErrStreamClosed = errors.New("change stream closed")

// MemoryStream is an in-process change stream backed by a buffered channel.
type MemoryStream struct {
	ch     chan []byte
	mu     sync.RWMutex
	closed bool
}

func NewMemoryStream(buffer int) *MemoryStream {
	if buffer <= 0 {
		buffer = 1024
	}
	return &MemoryStream{ch: make(chan []byte, buffer)}
}

// Publish stores the encoded event, so later mutation of the images cannot leak into the stream.
func (s *MemoryStream) Publish(ctx context.Context, event domain.ChangeEvent) error {
	payload, err := encode(event)
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStreamClosed
	}
	select {
	case s.ch <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *MemoryStream) Consume(ctx context.Context, batchSize int, handle BatchHandler) error {
	if batchSize <= 0 {
		batchSize = 10
	}
	for {
		var first []byte
		select {
		case <-ctx.Done():
			return nil
		case payload, ok := <-s.ch:
			if !ok {
				return nil
			}
			first = payload
		}

		batch := [][]byte{first}
	drain:
		for len(batch) < batchSize {
			select {
			case payload, ok := <-s.ch:
				if !ok {
					break drain
				}
				batch = append(batch, payload)
			default:
				break drain
			}
		}

		events := make([]domain.ChangeEvent, 0, len(batch))
		for _, payload := range batch {
			event, err := decode(payload)
			if err != nil {
				continue
			}
			events = append(events, event)
		}
		if err := handle(ctx, events); err != nil && ctx.Err() != nil {
			return nil
		}
	}
}

// Pending reports events published but not yet consumed.
func (s *MemoryStream) Pending() int {
	return len(s.ch)
}

func (s *MemoryStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}

var _ Stream = (*MemoryStream)(nil)
