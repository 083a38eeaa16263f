package driver

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"
)

// PostgresDriver is the primary backing driver. Introspection relies on
// the standard information_schema catalog views.
type PostgresDriver struct {
	dsn    string
	bounds PoolBounds
	db     *sql.DB
}

func NewPostgresDriver(dsn string, bounds PoolBounds) *PostgresDriver {
	return &PostgresDriver{dsn: dsn, bounds: bounds}
}

func (d *PostgresDriver) Name() string {
	return "postgres"
}

func (d *PostgresDriver) open() error {
	if d.db != nil {
		return nil
	}
	db, err := sql.Open("postgres", d.dsn)
	if err != nil {
		return err
	}
	applyBounds(db, d.bounds)
	d.db = db
	return nil
}

func (d *PostgresDriver) Ping(ctx context.Context) error {
	if err := d.open(); err != nil {
		return err
	}
	return d.db.PingContext(ctx)
}

func (d *PostgresDriver) Query(ctx context.Context, query string) (RowStreamer, error) {
	if err := d.open(); err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return rows, nil
}

func (d *PostgresDriver) Close() error {
	if d.db != nil {
		err := d.db.Close()
		d.db = nil
		return err
	}
	return nil
}
