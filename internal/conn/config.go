package conn

import (
	"fmt"

	"querybridge/internal/driver"
	"querybridge/internal/result"
)

// Config holds the parameters for the single logical database connection.
type Config struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
	// Pool bounds passed through to the underlying driver pool.
	PoolMin int
	PoolMax int
	// SSLMode is the Postgres sslmode parameter (default "disable").
	SSLMode string
}

// Validate checks the required fields eagerly. A missing field fails
// synchronously and must not consume a retry attempt.
func (c Config) Validate() error {
	switch {
	case c.Host == "":
		return fmt.Errorf("%w: host is required", result.ErrConfigInvalid)
	case c.Port == "":
		return fmt.Errorf("%w: port is required", result.ErrConfigInvalid)
	case c.Database == "":
		return fmt.Errorf("%w: database is required", result.ErrConfigInvalid)
	}
	return nil
}

// Bounds returns the driver pool bounds.
func (c Config) Bounds() driver.PoolBounds {
	return driver.PoolBounds{Min: c.PoolMin, Max: c.PoolMax}
}

// PostgresDSN renders the lib/pq connection string.
func (c Config) PostgresDSN() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.User, c.Password, sslmode)
}

// MySQLDSN renders the go-sql-driver connection string.
func (c Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		c.User, c.Password, c.Host, c.Port, c.Database)
}
