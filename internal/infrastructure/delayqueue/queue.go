package delayqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/usecase"
)

// ErrDelayOutOfRange is returned by Send for delays outside [0, usecase.MaxQueueDelay].
var ErrDelayOutOfRange = fmt.Errorf("delay must be between 0 and %s", usecase.MaxQueueDelay)

const defaultVisibility = 30 * time.Second

// Delivery is one received message. It stays invisible to other receivers
// until acknowledged or until its visibility timeout passes.
type Delivery struct {
	ID   string
	Body []byte
}

// Decode parses the delivery body as an expiry message.
func (d Delivery) Decode() (domain.ExpiryMessage, error) {
	var msg domain.ExpiryMessage
	if len(d.Body) == 0 {
		return msg, errors.New("empty message body")
	}
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		return msg, err
	}
	return msg, nil
}

// Receiver is the consuming side of a delay queue.
type Receiver interface {
	Receive(ctx context.Context, max int) ([]Delivery, error)
	Ack(ctx context.Context, d Delivery) error
	RequeueExpired(ctx context.Context) (int, error)
}

// Queue is both sides of a delay queue.
type Queue interface {
	usecase.DelayQueue
	Receiver
}

type options struct {
	now        func() time.Time
	visibility time.Duration
}

// Option tunes a queue implementation.
type Option func(*options)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithVisibilityTimeout sets how long a received message stays hidden before redelivery.
func WithVisibilityTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.visibility = d
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, visibility: defaultVisibility}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func validateDelay(delay time.Duration) error {
	if delay < 0 || delay > usecase.MaxQueueDelay {
		return ErrDelayOutOfRange
	}
	return nil
}
