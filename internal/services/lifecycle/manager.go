package lifecycle

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ShutdownFunc describes a graceful shutdown callback.
type ShutdownFunc func(ctx context.Context) error

// RunFunc is a background component that runs until ctx is cancelled.
type RunFunc func(ctx context.Context) error

type hook struct {
	name string
	fn   ShutdownFunc
}

// Manager coordinates background runners, graceful shutdown hooks and OS signals.
type Manager struct {
	timeout time.Duration
	logger  *zap.Logger

	mu    sync.Mutex
	hooks []hook

	group    *errgroup.Group
	groupCtx context.Context
}

// New creates a lifecycle manager with the desired timeout.
func New(timeout time.Duration, logger *zap.Logger) *Manager {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		timeout: timeout,
		logger:  logger,
	}
}

// Register adds a shutdown hook. Hooks are executed in reverse order.
func (m *Manager) Register(name string, fn ShutdownFunc) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook{name: name, fn: fn})
}

// Start binds runners to ctx. The group context is cancelled when ctx is or when a runner fails.
func (m *Manager) Start(ctx context.Context) context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.group, m.groupCtx = errgroup.WithContext(ctx)
	return m.groupCtx
}

// Go launches a runner in the background. Start must be called first.
func (m *Manager) Go(name string, fn RunFunc) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	group, ctx := m.group, m.groupCtx
	m.mu.Unlock()
	if group == nil {
		m.logger.Error("runner started before lifecycle manager", zap.String("component", name))
		return
	}

	group.Go(func() error {
		m.logger.Info("component started", zap.String("component", name))
		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error("component failed", zap.String("component", name), zap.Error(err))
			return err
		}
		return nil
	})
}

// Wait blocks until every runner returned and reports the first failure.
func (m *Manager) Wait() error {
	m.mu.Lock()
	group := m.group
	m.mu.Unlock()
	if group == nil {
		return nil
	}
	return group.Wait()
}

// Shutdown executes all registered hooks, respecting the configured timeout.
func (m *Manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var result error
	for i := len(m.hooks) - 1; i >= 0; i-- {
		h := m.hooks[i]
		if err := h.fn(ctx); err != nil {
			m.logger.Error("shutdown hook failed", zap.String("component", h.name), zap.Error(err))
			result = errors.Join(result, err)
			continue
		}
		m.logger.Info("component stopped", zap.String("component", h.name))
	}
	return result
}

// Listen blocks until an OS termination signal is received and then invokes the provided cancel function.
func (m *Manager) Listen(cancel context.CancelFunc) {
	if cancel == nil {
		return
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		defer signal.Stop(sigCh)
		sig := <-sigCh
		m.logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()
}
