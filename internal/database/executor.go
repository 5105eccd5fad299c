package database

import (
	"context"
	"time"

	"github.com/koustreak/pgbridge/internal/logger"
)

// Executor runs SQL over borrowed pooled connections. It owns the
// acquire/execute/release pairing: a connection acquired at the start of
// Run is released back to the pool exactly once, on every exit path:
// success, SQL failure, scan failure, or a panic in the scan loop.
type Executor struct {
	pool Pool
	log  *logger.Logger

	// queryTimeout bounds each statement. Zero means the caller's
	// context is the only limit.
	queryTimeout time.Duration
}

// NewExecutor creates an Executor over the given pool.
func NewExecutor(pool Pool, log *logger.Logger, queryTimeout time.Duration) *Executor {
	if log == nil {
		log = logger.Nop()
	}
	return &Executor{pool: pool, log: log, queryTimeout: queryTimeout}
}

// Run acquires a connection, executes sql, and materializes the full result
// set. All errors come back as *errs.Error; a panic below the acquire point
// still releases the connection via defer before propagating.
func (e *Executor) Run(ctx context.Context, sql string) (*QueryResult, error) {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	if e.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.queryTimeout)
		defer cancel()
	}

	rows, err := conn.Query(ctx, sql)
	if err != nil {
		return nil, err
	}

	result, err := scanRows(rows)
	if err != nil {
		return nil, err
	}

	e.log.Debugf("query returned %d rows", len(result.Rows))
	return result, nil
}
