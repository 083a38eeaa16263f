package service

import (
	"context"
	"fmt"
	"strings"

	"querybridge/internal/conn"
	"querybridge/internal/page"
	"querybridge/internal/query"
	"querybridge/internal/result"
)

// Service composes the connection manager, query executor, and result
// pager into the operations consumed by the transport layer. It owns the
// lazy-connect rule: every DB-touching operation ensures a connection
// first, and connection failure propagates as the operation's failure.
type Service struct {
	mgr   *conn.Manager
	exec  *query.Executor
	pager *page.Pager
}

func New(mgr *conn.Manager, exec *query.Executor, pager *page.Pager) *Service {
	return &Service{
		mgr:   mgr,
		exec:  exec,
		pager: pager,
	}
}

// ensureConnected is the single guard invoked at the top of each
// DB-touching operation. A failed lazy connect is reported as
// ErrNotConnected wrapping the underlying connection error.
func (s *Service) ensureConnected(ctx context.Context) error {
	if s.mgr.Connected() {
		return nil
	}
	if err := s.mgr.Connect(ctx); err != nil {
		return fmt.Errorf("%w: %w", result.ErrNotConnected, err)
	}
	return nil
}

// ExecuteQuery runs an opaque, fully-formed statement through the
// executor. Statements run verbatim; escaping is the caller's problem.
func (s *Service) ExecuteQuery(ctx context.Context, sqlText string) (*result.QueryResult, error) {
	if err := s.ensureConnected(ctx); err != nil {
		return nil, err
	}
	return s.exec.Execute(ctx, sqlText)
}

// GetQueryPage serves a page of a staged result. It deliberately skips
// the connection guard: paging works off the cache snapshot and must
// keep working even while a reconnect is in progress.
func (s *Service) GetQueryPage(ctx context.Context, id string, pageIndex int) (*result.PageResponse, error) {
	return s.pager.GetPage(ctx, id, pageIndex)
}

// Disconnect releases the connection; idempotent.
func (s *Service) Disconnect() error {
	return s.mgr.Disconnect()
}

// HealthCheck probes the live connection, reconnecting if necessary.
func (s *Service) HealthCheck(ctx context.Context) result.HealthStatus {
	return s.mgr.HealthCheck(ctx)
}

// GetTables enumerates the user tables of the connected database. The
// fixed introspection SQL runs through the same executor path as user
// queries, so the large-result contract applies uniformly (in practice
// schema listings never reach the staging threshold).
func (s *Service) GetTables(ctx context.Context) (*result.QueryResult, error) {
	if err := s.ensureConnected(ctx); err != nil {
		return nil, err
	}
	return s.exec.Execute(ctx, s.tablesSQL())
}

// SchemaDetail aggregates one schema's table count and table names.
type SchemaDetail struct {
	Name       string   `json:"name"`
	TableCount int      `json:"tableCount"`
	Tables     []string `json:"tables"`
}

// SchemaInfo lists schemas in the database's own alphabetical order.
type SchemaInfo struct {
	Schemas []SchemaDetail `json:"schemas"`
}

// GetSchemaInfo enumerates schemas, then issues two round trips per
// schema (count, then list). The loop is sequential; catalog queries
// are cheap and ordering stays deterministic.
func (s *Service) GetSchemaInfo(ctx context.Context) (*SchemaInfo, error) {
	if err := s.ensureConnected(ctx); err != nil {
		return nil, err
	}

	res, err := s.exec.Execute(ctx, "SELECT schema_name FROM information_schema.schemata ORDER BY schema_name")
	if err != nil {
		return nil, err
	}

	info := &SchemaInfo{Schemas: []SchemaDetail{}}
	for _, schemaName := range columnStrings(res, "schema_name") {
		countRes, err := s.exec.Execute(ctx, fmt.Sprintf(
			"SELECT COUNT(*) AS table_count FROM information_schema.tables WHERE table_schema = '%s'",
			escapeLiteral(schemaName)))
		if err != nil {
			return nil, err
		}

		listRes, err := s.exec.Execute(ctx, fmt.Sprintf(
			"SELECT table_name FROM information_schema.tables WHERE table_schema = '%s' ORDER BY table_name",
			escapeLiteral(schemaName)))
		if err != nil {
			return nil, err
		}

		info.Schemas = append(info.Schemas, SchemaDetail{
			Name:       schemaName,
			TableCount: firstInt(countRes, "table_count"),
			Tables:     columnStrings(listRes, "table_name"),
		})
	}

	return info, nil
}

// StageSchemaSnapshot flattens the schema catalog into a staged result
// set, one row per table, so the snapshot can be paged or handed to the
// export pipeline like any query output. Schemas without tables still
// contribute a row so the snapshot lists every schema.
func (s *Service) StageSchemaSnapshot(ctx context.Context) (*result.QueryResult, error) {
	info, err := s.GetSchemaInfo(ctx)
	if err != nil {
		return nil, err
	}

	fields := []result.Field{{Name: "schema_name"}, {Name: "table_name"}}
	rows := []result.Row{}
	for _, schema := range info.Schemas {
		if len(schema.Tables) == 0 {
			rows = append(rows, result.Row{"schema_name": schema.Name, "table_name": ""})
			continue
		}
		for _, table := range schema.Tables {
			rows = append(rows, result.Row{"schema_name": schema.Name, "table_name": table})
		}
	}

	id, err := s.exec.Stage(ctx, rows, fields)
	if err != nil {
		return nil, err
	}

	return &result.QueryResult{
		IsLargeResult: true,
		ResultID:      id,
		RowCount:      len(rows),
		Fields:        fields,
	}, nil
}

func (s *Service) tablesSQL() string {
	if s.mgr.DriverName() == "mysql" {
		return "SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() ORDER BY table_name"
	}
	return "SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' ORDER BY table_name"
}

// TableNames extracts the name column from an inline introspection
// result. A staged listing (beyond the threshold) has no inline rows.
func TableNames(res *result.QueryResult) []string {
	return columnStrings(res, "table_name")
}

func columnStrings(res *result.QueryResult, column string) []string {
	out := []string{}
	for _, row := range res.Rows {
		if v, ok := row[column].(string); ok {
			out = append(out, v)
		}
	}
	return out
}

// firstInt reads a single aggregate value. Drivers disagree on the
// concrete numeric type, so all the usual shapes are accepted.
func firstInt(res *result.QueryResult, column string) int {
	if len(res.Rows) == 0 {
		return 0
	}
	switch v := res.Rows[0][column].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	case string:
		var n int
		fmt.Sscan(v, &n)
		return n
	default:
		return 0
	}
}

func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
