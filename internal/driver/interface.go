package driver

import (
	"context"
	"database/sql"
)

// Driver abstracts the relational database connection and query execution.
type Driver interface {
	// Name returns the driver name (e.g., "postgres", "mysql").
	Name() string

	// Ping opens the connection if needed and runs a liveness round trip.
	Ping(ctx context.Context) error

	// Query executes a statement and returns a RowStreamer over the results.
	Query(ctx context.Context, query string) (RowStreamer, error)

	// Close closes the database connection.
	Close() error
}

// RowStreamer iterates over query results row by row.
type RowStreamer interface {
	// Columns returns the column names. Safe to call after Query returns.
	Columns() ([]string, error)

	// ColumnTypes returns column information such as database type name.
	ColumnTypes() ([]*sql.ColumnType, error)

	// Next advances to the next row. Returns false when there are no more rows or an error occurs.
	Next() bool

	// Scan copies the columns in the current row into the values pointed at by dest.
	Scan(dest ...interface{}) error

	// Err returns the error, if any, that was encountered during iteration.
	Err() error

	// Close closes the streamer and frees resources.
	Close() error
}

// PoolBounds caps the connections the underlying pool may hold.
// Max bounds open connections; Min is kept idle between bursts.
type PoolBounds struct {
	Min int
	Max int
}

func applyBounds(db *sql.DB, b PoolBounds) {
	if b.Max > 0 {
		db.SetMaxOpenConns(b.Max)
	}
	if b.Min > 0 {
		db.SetMaxIdleConns(b.Min)
	}
}
