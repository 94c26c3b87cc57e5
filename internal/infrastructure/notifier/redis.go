package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goRedis "github.com/redis/go-redis/v9"
)

// Notification is the payload fanned out to topic subscribers.
type Notification struct {
	Subject     string    `json:"subject"`
	Message     string    `json:"message"`
	PublishedAt time.Time `json:"published_at"`
}

// RedisNotifier publishes notifications on a Redis pub/sub channel named after the topic.
type RedisNotifier struct {
	client goRedis.UniversalClient
	now    func() time.Time
}

func NewRedisNotifier(client goRedis.UniversalClient) *RedisNotifier {
	return &RedisNotifier{client: client, now: time.Now}
}

func (n *RedisNotifier) Publish(ctx context.Context, topic, subject, message string) error {
	if topic == "" {
		return errors.New("notifier topic is empty")
	}
	payload, err := json.Marshal(Notification{
		Subject:     subject,
		Message:     message,
		PublishedAt: n.now().UTC(),
	})
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, topic, payload).Err()
}

// Subscribe opens a subscription to topic. Callers close the returned PubSub.
func (n *RedisNotifier) Subscribe(ctx context.Context, topic string) *goRedis.PubSub {
	return n.client.Subscribe(ctx, topic)
}

// Decode parses a pub/sub payload published by RedisNotifier.
func Decode(payload string) (Notification, error) {
	var out Notification
	err := json.Unmarshal([]byte(payload), &out)
	return out, err
}
