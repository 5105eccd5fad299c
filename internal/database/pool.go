// Package database owns the shared connection pool and the query executor.
// All layers above this package see only the Pool/Conn/Rows interfaces and
// *errs.Error values, never pgx types or native driver errors.
package database

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koustreak/pgbridge/internal/errs"
	"github.com/koustreak/pgbridge/internal/logger"
)

const (
	defaultMaxConns = 20
	defaultMinConns = 1
)

// Manager owns the process's single pgx connection pool.
//
// Initialization is lazy and self-healing: if the pool cannot be built
// (missing connection string, unreachable host), the Manager stays
// uninitialized and the next Acquire retries from scratch. A misconfigured
// environment therefore surfaces as per-request errors, not a crash, and
// operators can fix the configuration without a restart.
type Manager struct {
	cfg *Config
	log *logger.Logger

	mu   sync.Mutex
	pool *pgxpool.Pool
}

// NewManager creates an uninitialized Manager. No connection is attempted
// until Initialize or the first Acquire.
func NewManager(cfg *Config, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{cfg: cfg, log: log}
}

// Initialize builds the pool if it does not exist yet. Idempotent: a second
// call when already initialized is a no-op.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initLocked(ctx)
}

// initLocked builds the pool. Callers must hold m.mu.
// On any failure the pool stays nil so a later call can retry.
func (m *Manager) initLocked(ctx context.Context) error {
	if m.pool != nil {
		return nil
	}

	if m.cfg.DSN == "" {
		m.log.Error("database connection string is not configured")
		return errs.New(errs.ErrKindConfiguration, "database connection string is not configured")
	}

	poolCfg, err := pgxpool.ParseConfig(m.cfg.DSN)
	if err != nil {
		m.log.ErrorWith("invalid database connection string", err, nil)
		return errs.Wrap(errs.ErrKindConfiguration, "invalid database connection string", err)
	}

	poolCfg.MaxConns = withDefault(m.cfg.MaxConns, defaultMaxConns)
	poolCfg.MinConns = withDefault(m.cfg.MinConns, defaultMinConns)
	if m.cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = m.cfg.MaxConnLifetime
	}
	if m.cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = m.cfg.MaxConnIdleTime
	}
	if m.cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = m.cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		m.log.ErrorWith("failed to initialize connection pool", err, map[string]any{
			"dsn": logger.SanitizeDSN(m.cfg.DSN),
		})
		return errs.Wrap(errs.ErrKindConnection, "failed to initialize connection pool", err)
	}

	m.pool = pool
	m.log.Infof("database connection pool initialized (min=%d max=%d)", poolCfg.MinConns, poolCfg.MaxConns)
	return nil
}

// Acquire returns a borrowed connection, initializing the pool first if
// needed. The wait for a free slot is bounded by cfg.AcquireTimeout;
// exhaustion is reported distinctly from a hard connection failure.
func (m *Manager) Acquire(ctx context.Context) (Conn, error) {
	m.mu.Lock()
	if err := m.initLocked(ctx); err != nil {
		m.mu.Unlock()
		return nil, errs.Wrap(errs.ErrKindPoolUnavailable,
			"database pool is not initialized. Check environment variables and logs", err)
	}
	pool := m.pool
	m.mu.Unlock()

	acquireCtx := ctx
	if m.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, m.cfg.AcquireTimeout)
		defer cancel()
	}

	conn, err := pool.Acquire(acquireCtx)
	if err != nil {
		// Distinguish our acquire deadline from the caller's own cancellation.
		if errors.Is(acquireCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			m.log.Error("timed out waiting for a pooled connection")
			return nil, errs.Wrap(errs.ErrKindPoolExhausted,
				"timed out waiting for a pooled connection", err)
		}
		m.log.ErrorWith("failed to get connection from pool", err, nil)
		return nil, mapError(err, "failed to get connection from pool")
	}

	m.log.Debug("retrieved a connection from the pool")
	return &pooledConn{conn: conn, log: m.log}, nil
}

// Initialized reports whether the pool currently exists.
func (m *Manager) Initialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pool != nil
}

// Stat reports pool counters. All zero when the pool is uninitialized.
func (m *Manager) Stat() PoolStat {
	m.mu.Lock()
	pool := m.pool
	m.mu.Unlock()

	if pool == nil {
		return PoolStat{}
	}
	s := pool.Stat()
	return PoolStat{
		Acquired: s.AcquiredConns(),
		Idle:     s.IdleConns(),
		Total:    s.TotalConns(),
		Max:      s.MaxConns(),
	}
}

// Close drains the pool. Call once at process teardown.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pool != nil {
		m.pool.Close()
		m.pool = nil
	}
}

// PoolStat is a snapshot of the pool's bookkeeping.
type PoolStat struct {
	Acquired int32 // connections currently checked out
	Idle     int32 // connections sitting in the pool
	Total    int32 // all live connections
	Max      int32 // configured upper bound
}

// pooledConn adapts *pgxpool.Conn to the Conn interface with an
// idempotent Release.
type pooledConn struct {
	conn     *pgxpool.Conn
	log      *logger.Logger
	released atomic.Bool
}

func (c *pooledConn) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := c.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "query failed")
	}
	return &pgxRows{rows: rows}, nil
}

func (c *pooledConn) Release() {
	if c.released.Swap(true) {
		c.log.Warn("connection released more than once")
		return
	}
	c.conn.Release()
	c.log.Debug("released a connection back to the pool")
}

// withDefault returns val if non-zero, otherwise def.
func withDefault(val, def int32) int32 {
	if val == 0 {
		return def
	}
	return val
}
