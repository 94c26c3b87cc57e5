package main

import (
	"context"
	"fmt"

	goRedis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/todo/internal/config"
	boltInfra "github.com/fastygo/todo/internal/infrastructure/bolt"
	"github.com/fastygo/todo/internal/infrastructure/changestream"
	"github.com/fastygo/todo/internal/infrastructure/delayqueue"
	"github.com/fastygo/todo/internal/infrastructure/monitor"
	"github.com/fastygo/todo/internal/infrastructure/notifier"
	pgInfra "github.com/fastygo/todo/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/todo/internal/infrastructure/redis"
	"github.com/fastygo/todo/internal/services/lifecycle"
	"github.com/fastygo/todo/repository"
	boltRepo "github.com/fastygo/todo/repository/bolt"
	memoryRepo "github.com/fastygo/todo/repository/memory"
	pgRepo "github.com/fastygo/todo/repository/postgres"
	"github.com/fastygo/todo/usecase"
)

type dependencies struct {
	tasks    repository.TaskRepository
	stream   changestream.Stream
	queue    delayqueue.Queue
	notifier usecase.Notifier
}

// buildDependencies opens the configured drivers, registering a health check
// and a shutdown hook for each connection it opens.
func buildDependencies(ctx context.Context, cfg *config.Config, mon *monitor.Monitor, manager *lifecycle.Manager, logger *zap.Logger) (*dependencies, error) {
	deps := &dependencies{}

	tasks, err := buildTaskStore(ctx, cfg, mon, manager, logger)
	if err != nil {
		return nil, fmt.Errorf("task store: %w", err)
	}
	deps.tasks = tasks

	var redisClient *goRedis.Client
	if cfg.UsesRedis() {
		redisClient, err = redisInfra.NewClient(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		manager.Register("redis", func(ctx context.Context) error {
			return redisClient.Close()
		})
		mon.Register("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	switch cfg.Stream.Driver {
	case config.DriverKafka:
		stream, err := changestream.NewKafkaStream(changestream.KafkaConfig{
			Brokers:    cfg.Kafka.Brokers,
			Topic:      cfg.Stream.Topic,
			GroupID:    cfg.Stream.GroupID,
			Partitions: cfg.Kafka.Partitions,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("change stream: %w", err)
		}
		stream.EnsureTopic(ctx)
		deps.stream = stream
	default:
		deps.stream = changestream.NewMemoryStream(cfg.Stream.Buffer)
	}
	manager.Register("change_stream", func(ctx context.Context) error {
		return deps.stream.Close()
	})

	queueOpts := []delayqueue.Option{delayqueue.WithVisibilityTimeout(cfg.Queue.VisibilityTimeout)}
	switch cfg.Queue.Driver {
	case config.DriverRedis:
		queue := delayqueue.NewRedisQueue(redisClient, cfg.Resources.QueueURL, queueOpts...)
		mon.Register("delay_queue", func(ctx context.Context) error {
			ready, inflight, err := queue.Depth(ctx)
			if err != nil {
				return err
			}
			logger.Debug("delay queue depth", zap.Int64("ready", ready), zap.Int64("inflight", inflight))
			return nil
		})
		deps.queue = queue
	default:
		deps.queue = delayqueue.NewMemoryQueue(queueOpts...)
	}

	switch cfg.Notifier.Driver {
	case config.DriverRedis:
		deps.notifier = notifier.NewRedisNotifier(redisClient)
	default:
		deps.notifier = notifier.NewLogNotifier(logger)
	}

	logger.Info("drivers selected",
		zap.String("store", cfg.Store.Driver),
		zap.String("stream", cfg.Stream.Driver),
		zap.String("queue", cfg.Queue.Driver),
		zap.String("notifier", cfg.Notifier.Driver),
		zap.String("table", cfg.Resources.TableName))
	return deps, nil
}

func buildTaskStore(ctx context.Context, cfg *config.Config, mon *monitor.Monitor, manager *lifecycle.Manager, logger *zap.Logger) (repository.TaskRepository, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		if err := pgInfra.RunMigrations(cfg, logger); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		pool, err := pgInfra.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		manager.Register("postgres", func(ctx context.Context) error {
			pgInfra.Close(pool, logger)
			return nil
		})
		mon.Register("postgres", pool.Ping)
		return pgRepo.NewTaskRepository(pool, cfg.Resources.TableName), nil

	case config.DriverBolt:
		db, err := boltInfra.Open(cfg.Bolt, logger)
		if err != nil {
			return nil, err
		}
		manager.Register("bolt", func(ctx context.Context) error {
			return boltInfra.Close(db, logger)
		})
		mon.Register("bolt", func(ctx context.Context) error {
			return boltInfra.Ping(db)
		})
		return boltRepo.NewTaskRepository(db, cfg.Resources.TableName)

	default:
		return memoryRepo.NewTaskRepository(), nil
	}
}
