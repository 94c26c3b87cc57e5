package main

import (
	"context"
	"log"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/todo/api/handler"
	"github.com/fastygo/todo/internal/config"
	"github.com/fastygo/todo/internal/infrastructure/monitor"
	"github.com/fastygo/todo/internal/middleware"
	"github.com/fastygo/todo/internal/router"
	"github.com/fastygo/todo/internal/services"
	"github.com/fastygo/todo/internal/services/lifecycle"
	"github.com/fastygo/todo/pkg/httpcontext"
	"github.com/fastygo/todo/pkg/logger"
	"github.com/fastygo/todo/repository/changefeed"
	"github.com/fastygo/todo/usecase"
	authUC "github.com/fastygo/todo/usecase/auth"
	"github.com/fastygo/todo/usecase/expiry"
	"github.com/fastygo/todo/usecase/relay"
	taskUC "github.com/fastygo/todo/usecase/task"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	mon := monitor.New(cfg.Monitor.Interval, zapLogger)

	deps, err := buildDependencies(appCtx, cfg, mon, manager, zapLogger)
	if err != nil {
		zapLogger.Fatal("dependency setup failed", zap.Error(err))
	}

	// Writes go through the change feed so every mutation reaches the relay.
	tasks := changefeed.New(deps.tasks, deps.stream, zapLogger)

	taskUseCase := taskUC.New(tasks, zapLogger)
	relayer := relay.New(deps.queue, zapLogger, nil)
	expiryWorker := expiry.New(tasks, deps.notifier, cfg.Resources.TopicARN, zapLogger)
	authUseCase := authUC.New(deps.notifier, cfg.Resources.TopicARN, zapLogger)

	dispatcher := usecase.NewDispatcher(
		usecase.WithStreamHandler(services.RelayHandler(relayer, zapLogger)),
		usecase.WithQueueHandler(services.ExpiryHandler(expiryWorker, zapLogger)),
		usecase.WithAuthHandler(services.AuthHandler(authUseCase)),
	)

	runCtx := manager.Start(appCtx)

	if cfg.Workers.Relay {
		consumer := services.NewStreamConsumer(deps.stream, dispatcher, cfg.Stream.BatchSize, zapLogger)
		manager.Go("stream_consumer", consumer.Run)
	}

	if cfg.Workers.Expiry {
		poller := services.NewQueuePoller(deps.queue, dispatcher, services.PollerConfig{
			Interval:  cfg.Queue.PollInterval,
			BatchSize: cfg.Queue.BatchSize,
		}, zapLogger)
		manager.Go("queue_poller", poller.Run)

		reaper, err := services.NewReaper(deps.queue, cfg.Queue.ReapSchedule, zapLogger)
		if err != nil {
			zapLogger.Fatal("invalid reap schedule", zap.String("schedule", cfg.Queue.ReapSchedule), zap.Error(err))
		}
		reaper.Start()
		manager.Register("reaper", func(ctx context.Context) error {
			reaper.Stop(ctx)
			return nil
		})
	}

	mon.Refresh(appCtx)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Task:     apiHandler.NewTaskHandler(taskUseCase, ctxAdapter, zapLogger),
		Health:   apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
		AuthHook: apiHandler.NewAuthHookHandler(dispatcher, cfg.Hooks.Secret, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, cfg.JWT.Issuer, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      middleware.CORS(r.Handler),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	manager.Go("http_server", func(ctx context.Context) error {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		return server.ListenAndServe(cfg.Address())
	})
	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-runCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
	if err := manager.Wait(); err != nil {
		zapLogger.Error("component exited with error", zap.Error(err))
	}
}
