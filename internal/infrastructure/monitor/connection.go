package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CheckFunc checks one dependency; a nil error means healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name string
	fn   CheckFunc
}

type Monitor struct {
	checks []check

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

func New(interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		interval: interval,
		timeout:  3 * time.Second,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

// Register adds a named check. Call before Start.
func (m *Monitor) Register(name string, fn CheckFunc) {
	if fn == nil {
		return
	}
	m.checks = append(m.checks, check{name: name, fn: fn})
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Healthy
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Refresh runs every check once and stores the result.
func (m *Monitor) Refresh(ctx context.Context) Status {
	status := Status{
		Healthy:    true,
		Components: make(map[string]CheckResult, len(m.checks)),
		LastCheck:  time.Now(),
	}
	for _, c := range m.checks {
		checkCtx, cancel := context.WithTimeout(ctx, m.timeout)
		err := c.fn(checkCtx)
		cancel()

		result := CheckResult{OK: err == nil}
		if err != nil {
			result.Error = err.Error()
			status.Healthy = false
			m.logger.Warn("dependency check failed", zap.String("component", c.name), zap.Error(err))
		}
		status.Components[c.name] = result
	}

	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
	return status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Refresh(context.Background())
	for {
		select {
		case <-ticker.C:
			m.Refresh(context.Background())
		case <-m.stopCh:
			return
		}
	}
}
