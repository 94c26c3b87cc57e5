package usecase

import (
	"context"
	"fmt"

	"github.com/fastygo/todo/domain"
)

// Trigger is one invocation delivered to the backend. The set of variants is
// closed: StreamBatch, QueueBatch and AuthSignIn.
type Trigger interface {
	triggerName() string
}

// StreamBatch carries records read from the task change stream.
type StreamBatch struct {
	Events []domain.ChangeEvent
}

// QueueBatch carries expiry messages whose delay elapsed.
type QueueBatch struct {
	Messages []domain.ExpiryMessage
}

// AuthSignIn carries a post-authentication event.
type AuthSignIn struct {
	Event domain.AuthEvent
}

func (StreamBatch) triggerName() string { return "stream" }
func (QueueBatch) triggerName() string  { return "queue" }
func (AuthSignIn) triggerName() string  { return "auth" }

type (
	StreamHandler func(ctx context.Context, batch StreamBatch) error
	QueueHandler  func(ctx context.Context, batch QueueBatch) error
	AuthHandler   func(ctx context.Context, event AuthSignIn) error
)

// Dispatcher routes each Trigger variant to its handler.
type Dispatcher struct {
	stream StreamHandler
	queue  QueueHandler
	auth   AuthHandler
}

// DispatcherOption registers the handler for one variant.
type DispatcherOption func(*Dispatcher)

func WithStreamHandler(h StreamHandler) DispatcherOption {
	return func(d *Dispatcher) { d.stream = h }
}

func WithQueueHandler(h QueueHandler) DispatcherOption {
	return func(d *Dispatcher) { d.queue = h }
}

func WithAuthHandler(h AuthHandler) DispatcherOption {
	return func(d *Dispatcher) { d.auth = h }
}

func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch invokes the handler registered for the trigger's variant.
func (d *Dispatcher) Dispatch(ctx context.Context, trigger Trigger) error {
	switch t := trigger.(type) {
	case StreamBatch:
		if d.stream != nil {
			return d.stream(ctx, t)
		}
	case QueueBatch:
		if d.queue != nil {
			return d.queue(ctx, t)
		}
	case AuthSignIn:
		if d.auth != nil {
			return d.auth(ctx, t)
		}
	default:
		return domain.ErrUnknownTrigger
	}
	return fmt.Errorf("%s handler not registered", trigger.triggerName())
}
