package database

import "context"

// Pool hands out borrowed connections. The pool is the only shared mutable
// resource in the gateway; implementations must be safe for concurrent use.
type Pool interface {
	// Acquire returns a borrowed connection, lazily initializing the pool
	// on first use. It never returns a nil Conn with a nil error.
	Acquire(ctx context.Context) (Conn, error)
}

// Conn is a single borrowed connection. It is held by exactly one caller
// for the duration of one query and must be returned with Release under
// all outcomes.
type Conn interface {
	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// Release returns the connection to the pool. Releasing more than once
	// is a logged no-op, never a panic.
	Release()
}

// Rows is an abstraction over a database result set.
// Callers must always call Close() when done, even on error.
type Rows interface {
	// Next advances to the next row.
	// Returns false when no more rows exist or on error.
	Next() bool

	// Scan copies the current row's columns into the provided destinations.
	Scan(dest ...any) error

	// Columns returns the column names of the result set, in order.
	Columns() []string

	// Close releases resources held by the result set.
	Close()

	// Err returns any error encountered during iteration.
	Err() error
}
