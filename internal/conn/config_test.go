package conn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querybridge/internal/result"
)

func TestValidateRequiredFields(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"missing host", Config{Port: "5432", Database: "app"}, "host"},
		{"missing port", Config{Host: "localhost", Database: "app"}, "port"},
		{"missing database", Config{Host: "localhost", Port: "5432"}, "database"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, result.ErrConfigInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateComplete(t *testing.T) {
	cfg := Config{Host: "localhost", Port: "5432", Database: "app"}
	assert.NoError(t, cfg.Validate())
}

func TestPostgresDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: "5433", Database: "app", User: "u", Password: "p"}
	assert.Equal(t,
		"host=db port=5433 dbname=app user=u password=p sslmode=disable",
		cfg.PostgresDSN())

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.PostgresDSN(), "sslmode=require")
}

func TestMySQLDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: "3306", Database: "app", User: "u", Password: "p"}
	assert.Equal(t, "u:p@tcp(db:3306)/app?parseTime=true", cfg.MySQLDSN())
}
