package monitor

import (
	"context"
	"sync"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/taskflow/internal/infrastructure/buffer"
)

// Pinger is satisfied by the Postgres pool and the SQLite store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor polls dependencies in the background and caches the last result.
type Monitor struct {
	storage Pinger
	redis   *redislib.Client
	outbox  *buffer.Store

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	logger   *zap.Logger
}

func New(storage Pinger, redis *redislib.Client, outbox *buffer.Store, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		storage:  storage,
		redis:    redis,
		outbox:   outbox,
		interval: interval,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// Start runs one check synchronously, then keeps polling until Stop.
func (m *Monitor) Start() {
	m.Check(context.Background())
	go m.loop()
}

// Stop ends the polling loop and waits for it to exit.
func (m *Monitor) Stop(ctx context.Context) error {
	m.stopOnce.Do(func() { close(m.stopCh) })
	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsOnline gates the outbox drain: replays only make sense while storage answers.
func (m *Monitor) IsOnline() bool {
	return m.GetStatus().Healthy()
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) loop() {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Check(context.Background())
		case <-m.stopCh:
			return
		}
	}
}

// Check probes every dependency and stores the result.
func (m *Monitor) Check(ctx context.Context) Status {
	outbox, size := m.checkOutbox()
	status := Status{
		Storage:    m.checkStorage(ctx),
		Redis:      m.checkRedis(ctx),
		Outbox:     outbox,
		OutboxSize: size,
		LastCheck:  time.Now(),
	}

	m.mu.Lock()
	previous := m.status
	m.status = status
	m.mu.Unlock()

	if previous.Storage != "" && previous.Storage != status.Storage {
		m.logger.Warn("storage state changed", zap.String("from", string(previous.Storage)), zap.String("to", string(status.Storage)))
	}
	return status
}

func (m *Monitor) checkStorage(ctx context.Context) State {
	if m.storage == nil {
		return StateDown
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := m.storage.Ping(ctx); err != nil {
		m.logger.Warn("storage ping failed", zap.Error(err))
		return StateDown
	}
	return StateUp
}

func (m *Monitor) checkRedis(ctx context.Context) State {
	if m.redis == nil {
		return StateDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := m.redis.Ping(ctx).Err(); err != nil {
		return StateDown
	}
	return StateUp
}

func (m *Monitor) checkOutbox() (State, int) {
	if m.outbox == nil {
		return StateDisabled, 0
	}
	if err := m.outbox.Ping(); err != nil {
		m.logger.Warn("outbox check failed", zap.Error(err))
		return StateDown, 0
	}
	size, err := m.outbox.Len()
	if err != nil {
		return StateDown, 0
	}
	return StateUp, size
}
