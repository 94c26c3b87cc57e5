package changestream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/fastygo/todo/domain"
)

// KafkaConfig describes the change topic and its consumer group.
type KafkaConfig struct {
	Brokers    []string
	Topic      string
	GroupID    string
	Partitions int
	// Linger bounds how long a batch waits for more messages after the first one.
	Linger time.Duration
}

// KafkaStream publishes change events keyed by owner:task so events of one
// task land on one partition and keep their order.
type KafkaStream struct {
	cfg    KafkaConfig
	writer *kafka.Writer
	logger *zap.Logger
}

func NewKafkaStream(cfg KafkaConfig, logger *zap.Logger) (*KafkaStream, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are not configured")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is not configured")
	}
	if cfg.Linger <= 0 {
		cfg.Linger = 100 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaStream{
		cfg: cfg,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
		logger: logger,
	}, nil
}

// EnsureTopic creates the change topic. Failure is logged, since the topic may already exist.
func (s *KafkaStream) EnsureTopic(ctx context.Context) {
	conn, err := kafka.DialContext(ctx, "tcp", s.cfg.Brokers[0])
	if err != nil {
		s.logger.Debug("kafka dial for topic creation failed", zap.Error(err))
		return
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		s.logger.Debug("kafka controller lookup failed", zap.Error(err))
		return
	}
	ctrlConn, err := kafka.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		s.logger.Debug("kafka controller dial failed", zap.Error(err))
		return
	}
	defer ctrlConn.Close()

	partitions := s.cfg.Partitions
	if partitions <= 0 {
		partitions = 1
	}
	if err := ctrlConn.CreateTopics(kafka.TopicConfig{
		Topic:             s.cfg.Topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	}); err != nil {
		s.logger.Debug("kafka create topic failed (topic may already exist)", zap.Error(err))
		return
	}
	s.logger.Info("kafka topic ensured", zap.String("topic", s.cfg.Topic), zap.Int("partitions", partitions))
}

func (s *KafkaStream) Publish(ctx context.Context, event domain.ChangeEvent) error {
	payload, err := encode(event)
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Key()),
		Value: payload,
	})
}

func (s *KafkaStream) Consume(ctx context.Context, batchSize int, handle BatchHandler) error {
	if batchSize <= 0 {
		batchSize = 10
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  s.cfg.Brokers,
		Topic:    s.cfg.Topic,
		GroupID:  s.cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	s.logger.Info("change stream consumer started", zap.String("topic", s.cfg.Topic), zap.String("group", s.cfg.GroupID))
	for {
		msgs, err := s.fetchBatch(ctx, reader, batchSize)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Error("change stream fetch failed", zap.Error(err))
			continue
		}

		events := make([]domain.ChangeEvent, 0, len(msgs))
		for _, msg := range msgs {
			event, err := decode(msg.Value)
			if err != nil {
				s.logger.Error("change event decode failed", zap.ByteString("key", msg.Key), zap.Error(err))
				continue
			}
			events = append(events, event)
		}
		if len(events) > 0 {
			if err := handle(ctx, events); err != nil {
				s.logger.Error("change batch handle failed", zap.Int("events", len(events)), zap.Error(err))
			}
		}
		// Failed batches are committed too; the relay never retries.
		if err := reader.CommitMessages(ctx, msgs...); err != nil && ctx.Err() == nil {
			s.logger.Error("change stream commit failed", zap.Error(err))
		}
	}
}

// fetchBatch blocks for the first message, then collects more until the batch
// is full or Linger elapses.
func (s *KafkaStream) fetchBatch(ctx context.Context, reader *kafka.Reader, batchSize int) ([]kafka.Message, error) {
	first, err := reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	msgs := []kafka.Message{first}

	lingerCtx, cancel := context.WithTimeout(ctx, s.cfg.Linger)
	defer cancel()
	for len(msgs) < batchSize {
		msg, err := reader.FetchMessage(lingerCtx)
		if err != nil {
			break
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (s *KafkaStream) Close() error {
	return s.writer.Close()
}

var _ Stream = (*KafkaStream)(nil)
