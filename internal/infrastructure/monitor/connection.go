package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Probes are the dependency checks run on every tick. Nil probes report down.
type Probes struct {
	Postgres func(ctx context.Context) error
	Redis    func(ctx context.Context) error
	Buffer   func() (int, error)
}

// Monitor periodically probes the gateway's dependencies and caches the result.
type Monitor struct {
	probes Probes

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger

	recoverHooks []func()
}

func New(probes Probes, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		probes:   probes,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

func (m *Monitor) Start() {
	m.Refresh()
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// IsOnline reports whether the audit database is reachable.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.PostgreSQL
}

// OnRecover registers fn to run (in its own goroutine) whenever Postgres comes
// back after being down.
func (m *Monitor) OnRecover(fn func()) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recoverHooks = append(m.recoverHooks, fn)
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Refresh()
		case <-m.stopCh:
			return
		}
	}
}

// Refresh runs every probe once and stores the result.
func (m *Monitor) Refresh() {
	bufferOK, bufferSize := m.checkBuffer()
	status := Status{
		PostgreSQL: m.check("postgres", m.probes.Postgres, 3*time.Second),
		Redis:      m.check("redis", m.probes.Redis, 2*time.Second),
		Buffer:     bufferOK,
		BufferSize: bufferSize,
		LastCheck:  time.Now(),
	}

	m.mu.Lock()
	previous := m.status
	m.status = status
	hooks := append([]func(){}, m.recoverHooks...)
	m.mu.Unlock()

	if previous.LastCheck.IsZero() || previous.PostgreSQL == status.PostgreSQL {
		return
	}
	m.logger.Info("postgres availability changed", zap.Bool("online", status.PostgreSQL))
	if status.PostgreSQL {
		for _, fn := range hooks {
			go fn()
		}
	}
}

func (m *Monitor) check(name string, probe func(ctx context.Context) error, timeout time.Duration) bool {
	if probe == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := probe(ctx); err != nil {
		m.logger.Debug("dependency probe failed", zap.String("dependency", name), zap.Error(err))
		return false
	}
	return true
}

func (m *Monitor) checkBuffer() (bool, int) {
	if m.probes.Buffer == nil {
		return false, 0
	}
	size, err := m.probes.Buffer()
	if err != nil {
		m.logger.Warn("buffer size check failed", zap.Error(err))
		return false, size
	}
	return true, size
}
