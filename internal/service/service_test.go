package service_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querybridge/internal/cache"
	"querybridge/internal/conn"
	"querybridge/internal/driver"
	"querybridge/internal/page"
	"querybridge/internal/query"
	"querybridge/internal/result"
	"querybridge/internal/service"
)

type scripted struct {
	columns []string
	rows    [][]any
}

// scriptDriver answers each SQL statement from a lookup table, which is
// enough to exercise the introspection flows end to end.
type scriptDriver struct {
	mu      sync.Mutex
	results map[string]scripted
	pingErr error
	pings   int
}

func (d *scriptDriver) Name() string { return "postgres" }

func (d *scriptDriver) Ping(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pings++
	return d.pingErr
}

func (d *scriptDriver) Query(_ context.Context, sqlText string) (driver.RowStreamer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	res, ok := d.results[sqlText]
	if !ok {
		return nil, fmt.Errorf("unscripted statement: %s", sqlText)
	}
	return &scriptStreamer{columns: res.columns, rows: res.rows}, nil
}

func (d *scriptDriver) Close() error { return nil }

type scriptStreamer struct {
	columns []string
	rows    [][]any
	idx     int
}

func (s *scriptStreamer) Columns() ([]string, error) { return s.columns, nil }

func (s *scriptStreamer) ColumnTypes() ([]*sql.ColumnType, error) {
	return nil, errors.New("column types unsupported")
}

func (s *scriptStreamer) Next() bool {
	s.idx++
	return s.idx <= len(s.rows)
}

func (s *scriptStreamer) Scan(dest ...interface{}) error {
	row := s.rows[s.idx-1]
	for i := range dest {
		*(dest[i].(*interface{})) = row[i]
	}
	return nil
}

func (s *scriptStreamer) Err() error   { return nil }
func (s *scriptStreamer) Close() error { return nil }

type fixture struct {
	svc   *service.Service
	mgr   *conn.Manager
	store *cache.MemoryStore
	drv   *scriptDriver
}

func newFixture(drv *scriptDriver) *fixture {
	cfg := conn.Config{Host: "localhost", Port: "5432", Database: "app"}
	mgr := conn.NewManager(drv, cfg, 1, time.Millisecond)
	store := cache.NewMemoryStore()
	exec := query.NewExecutor(mgr, store, 1000, time.Hour)
	return &fixture{
		svc:   service.New(mgr, exec, page.NewPager(store)),
		mgr:   mgr,
		store: store,
		drv:   drv,
	}
}

const tablesSQL = "SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' ORDER BY table_name"

func TestExecuteQueryConnectsLazily(t *testing.T) {
	drv := &scriptDriver{results: map[string]scripted{
		"SELECT 1": {columns: []string{"?column?"}, rows: [][]any{{int64(1)}}},
	}}
	f := newFixture(drv)
	require.False(t, f.mgr.Connected())

	res, err := f.svc.ExecuteQuery(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowCount)
	assert.True(t, f.mgr.Connected())

	// A second call reuses the established connection.
	_, err = f.svc.ExecuteQuery(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, 1, drv.pings)
}

func TestExecuteQueryReportsConnectFailure(t *testing.T) {
	drv := &scriptDriver{pingErr: errors.New("refused")}
	f := newFixture(drv)

	_, err := f.svc.ExecuteQuery(context.Background(), "SELECT 1")
	require.Error(t, err)
	// The caller sees both the operational failure and its cause.
	assert.ErrorIs(t, err, result.ErrNotConnected)
	assert.ErrorIs(t, err, result.ErrConnectionExhausted)
}

func TestGetTables(t *testing.T) {
	drv := &scriptDriver{results: map[string]scripted{
		tablesSQL: {columns: []string{"table_name"}, rows: [][]any{{"orders"}, {"users"}}},
	}}
	f := newFixture(drv)

	res, err := f.svc.GetTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "users"}, service.TableNames(res))
}

func TestGetSchemaInfo(t *testing.T) {
	drv := &scriptDriver{results: map[string]scripted{
		"SELECT schema_name FROM information_schema.schemata ORDER BY schema_name": {
			columns: []string{"schema_name"}, rows: [][]any{{"app"}, {"audit"}},
		},
		"SELECT COUNT(*) AS table_count FROM information_schema.tables WHERE table_schema = 'app'": {
			columns: []string{"table_count"}, rows: [][]any{{int64(2)}},
		},
		"SELECT table_name FROM information_schema.tables WHERE table_schema = 'app' ORDER BY table_name": {
			columns: []string{"table_name"}, rows: [][]any{{"orders"}, {"users"}},
		},
		"SELECT COUNT(*) AS table_count FROM information_schema.tables WHERE table_schema = 'audit'": {
			columns: []string{"table_count"}, rows: [][]any{{int64(1)}},
		},
		"SELECT table_name FROM information_schema.tables WHERE table_schema = 'audit' ORDER BY table_name": {
			columns: []string{"table_name"}, rows: [][]any{{"events"}},
		},
	}}
	f := newFixture(drv)

	info, err := f.svc.GetSchemaInfo(context.Background())
	require.NoError(t, err)
	require.Len(t, info.Schemas, 2)

	assert.Equal(t, service.SchemaDetail{
		Name:       "app",
		TableCount: 2,
		Tables:     []string{"orders", "users"},
	}, info.Schemas[0])
	assert.Equal(t, service.SchemaDetail{
		Name:       "audit",
		TableCount: 1,
		Tables:     []string{"events"},
	}, info.Schemas[1])
}

func TestStageSchemaSnapshot(t *testing.T) {
	drv := &scriptDriver{results: map[string]scripted{
		"SELECT schema_name FROM information_schema.schemata ORDER BY schema_name": {
			columns: []string{"schema_name"}, rows: [][]any{{"app"}, {"empty"}},
		},
		"SELECT COUNT(*) AS table_count FROM information_schema.tables WHERE table_schema = 'app'": {
			columns: []string{"table_count"}, rows: [][]any{{int64(2)}},
		},
		"SELECT table_name FROM information_schema.tables WHERE table_schema = 'app' ORDER BY table_name": {
			columns: []string{"table_name"}, rows: [][]any{{"orders"}, {"users"}},
		},
		"SELECT COUNT(*) AS table_count FROM information_schema.tables WHERE table_schema = 'empty'": {
			columns: []string{"table_count"}, rows: [][]any{{int64(0)}},
		},
		"SELECT table_name FROM information_schema.tables WHERE table_schema = 'empty' ORDER BY table_name": {
			columns: []string{"table_name"}, rows: [][]any{},
		},
	}}
	f := newFixture(drv)

	res, err := f.svc.StageSchemaSnapshot(context.Background())
	require.NoError(t, err)

	assert.True(t, res.IsLargeResult)
	require.NotEmpty(t, res.ResultID)
	assert.Equal(t, 3, res.RowCount)

	// The snapshot is a staged result like any other: fetchable from
	// the cache and shaped one row per table.
	payload, err := f.store.Get(context.Background(), result.StageKey(res.ResultID))
	require.NoError(t, err)
	staged, err := result.DecodeStaged(payload)
	require.NoError(t, err)
	require.Len(t, staged.Rows, 3)
	assert.Equal(t, result.Row{"schema_name": "app", "table_name": "orders"}, staged.Rows[0])
	assert.Equal(t, result.Row{"schema_name": "app", "table_name": "users"}, staged.Rows[1])
	// A schema without tables still appears in the snapshot.
	assert.Equal(t, result.Row{"schema_name": "empty", "table_name": ""}, staged.Rows[2])

	// And the pager can serve it.
	resp, err := f.svc.GetQueryPage(context.Background(), res.ResultID, 0)
	require.NoError(t, err)
	assert.Len(t, resp.Rows, 3)
}

func TestGetQueryPageWorksWithoutConnection(t *testing.T) {
	// The database is unreachable, but a previously staged result must
	// still page from the cache snapshot.
	drv := &scriptDriver{pingErr: errors.New("refused")}
	f := newFixture(drv)

	rows := make([]result.Row, 150)
	for i := range rows {
		rows[i] = result.Row{"n": i}
	}
	staged := &result.StagedResultSet{Rows: rows, Fields: []result.Field{{Name: "n"}}}
	payload, err := staged.Encode()
	require.NoError(t, err)
	require.NoError(t, f.store.Set(context.Background(), result.StageKey("r1"), payload, time.Hour))

	resp, err := f.svc.GetQueryPage(context.Background(), "r1", 1)
	require.NoError(t, err)
	assert.Len(t, resp.Rows, 50)
	assert.False(t, f.mgr.Connected())
}

func TestDisconnectIsIdempotent(t *testing.T) {
	drv := &scriptDriver{results: map[string]scripted{}}
	f := newFixture(drv)
	require.NoError(t, f.mgr.Connect(context.Background()))

	require.NoError(t, f.svc.Disconnect())
	require.NoError(t, f.svc.Disconnect())
}

func TestHealthCheck(t *testing.T) {
	drv := &scriptDriver{}
	f := newFixture(drv)

	status := f.svc.HealthCheck(context.Background())
	assert.True(t, status.Connected)
	assert.Empty(t, status.Error)
}
