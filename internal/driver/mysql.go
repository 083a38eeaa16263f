package driver

import (
	"context"
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLDriver is the alternative backing driver. MySQL exposes the same
// information_schema views the introspection queries rely on.
type MySQLDriver struct {
	dsn    string
	bounds PoolBounds
	db     *sql.DB
}

func NewMySQLDriver(dsn string, bounds PoolBounds) *MySQLDriver {
	return &MySQLDriver{dsn: dsn, bounds: bounds}
}

func (d *MySQLDriver) Name() string {
	return "mysql"
}

func (d *MySQLDriver) open() error {
	if d.db != nil {
		return nil
	}
	db, err := sql.Open("mysql", d.dsn)
	if err != nil {
		return err
	}
	applyBounds(db, d.bounds)
	d.db = db
	return nil
}

func (d *MySQLDriver) Ping(ctx context.Context) error {
	if err := d.open(); err != nil {
		return err
	}
	return d.db.PingContext(ctx)
}

func (d *MySQLDriver) Query(ctx context.Context, query string) (RowStreamer, error) {
	if err := d.open(); err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return rows, nil
}

func (d *MySQLDriver) Close() error {
	if d.db != nil {
		err := d.db.Close()
		d.db = nil
		return err
	}
	return nil
}
