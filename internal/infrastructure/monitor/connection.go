// Package monitor polls the task store, the session cache and the drift
// journal and keeps the last answer for the health endpoint and the
// reconciler.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Probe returns nil when its dependency answers.
type Probe func(ctx context.Context) error

// Checks lists the probes of one round. A nil probe reports its dependency
// as down.
type Checks struct {
	Postgres    Probe
	Redis       Probe
	JournalSize func() (int, error)
}

func PingPostgres(pool *pgxpool.Pool) Probe {
	if pool == nil {
		return nil
	}
	return pool.Ping
}

func PingRedis(client redislib.UniversalClient) Probe {
	if client == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

type Monitor struct {
	checks  Checks
	timeout time.Duration
	now     func() time.Time

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

func New(checks Checks, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		checks:   checks,
		timeout:  3 * time.Second,
		now:      time.Now,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

// Start runs one probe round synchronously, then keeps polling in the background.
func (m *Monitor) Start() {
	m.Check()
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// IsOnline reports whether the task store answered the last probe.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.PostgreSQL
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Check runs one probe round and stores its result.
func (m *Monitor) Check() Status {
	journalOK, journalSize := m.checkJournal()
	status := Status{
		PostgreSQL:  m.probe("postgres", m.checks.Postgres),
		Redis:       m.probe("redis", m.checks.Redis),
		Journal:     journalOK,
		JournalSize: journalSize,
		LastCheck:   m.now(),
	}

	m.mu.Lock()
	previous := m.status
	m.status = status
	m.mu.Unlock()

	if previous.LastCheck.IsZero() {
		return status
	}
	if previous.PostgreSQL != status.PostgreSQL {
		m.logger.Warn("postgres connectivity changed", zap.Bool("online", status.PostgreSQL))
	}
	if previous.Redis != status.Redis {
		m.logger.Warn("redis connectivity changed", zap.Bool("online", status.Redis))
	}
	return status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Check()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Monitor) probe(name string, p Probe) bool {
	if p == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	if err := p(ctx); err != nil {
		m.logger.Debug("probe failed", zap.String("dependency", name), zap.Error(err))
		return false
	}
	return true
}

func (m *Monitor) checkJournal() (bool, int) {
	if m.checks.JournalSize == nil {
		return false, 0
	}
	size, err := m.checks.JournalSize()
	if err != nil {
		m.logger.Warn("journal size check failed", zap.Error(err))
		return false, size
	}
	return true, size
}
