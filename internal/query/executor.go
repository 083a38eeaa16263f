package query

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"querybridge/internal/cache"
	"querybridge/internal/conn"
	"querybridge/internal/driver"
	"querybridge/internal/result"
)

// DefaultLargeResultThreshold is the row count above which a result is
// staged in the cache instead of returned inline. It bounds the size of
// any single response; the exact value is policy, not structure.
const DefaultLargeResultThreshold = 1000

// DefaultStagedTTL is how long a staged result lives in the cache.
const DefaultStagedTTL = time.Hour

// Executor runs statements against the active connection, measures
// result size, and routes oversized results through the cache store.
type Executor struct {
	mgr       *conn.Manager
	store     cache.Store
	threshold int
	ttl       time.Duration
}

func NewExecutor(mgr *conn.Manager, store cache.Store, threshold int, ttl time.Duration) *Executor {
	if threshold <= 0 {
		threshold = DefaultLargeResultThreshold
	}
	if ttl <= 0 {
		ttl = DefaultStagedTTL
	}
	return &Executor{
		mgr:       mgr,
		store:     store,
		threshold: threshold,
		ttl:       ttl,
	}
}

// Execute runs sqlText as-is against the live handle. The statement is
// opaque; no binding or rewriting happens here, and a failed statement
// is never retried. Results above the threshold are serialized to the
// cache and replaced by a handle in the response.
func (e *Executor) Execute(ctx context.Context, sqlText string) (*result.QueryResult, error) {
	drv, err := e.mgr.Handle()
	if err != nil {
		return nil, err
	}

	streamer, err := drv.Query(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", result.ErrExecutionFailed, err)
	}
	defer streamer.Close()

	fields, err := describeFields(streamer)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", result.ErrExecutionFailed, err)
	}

	rows, err := collectRows(ctx, streamer, fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", result.ErrExecutionFailed, err)
	}

	rowCount := len(rows)
	if rowCount <= e.threshold {
		return &result.QueryResult{
			IsLargeResult: false,
			RowCount:      rowCount,
			Rows:          rows,
			Fields:        fields,
		}, nil
	}

	id, err := e.Stage(ctx, rows, fields)
	if err != nil {
		return nil, err
	}

	return &result.QueryResult{
		IsLargeResult: true,
		ResultID:      id,
		RowCount:      rowCount,
		Fields:        fields,
	}, nil
}

// Stage serializes an externally built result set into the cache under
// a fresh result ID, with the same TTL as query staging. It is how
// non-query producers (the schema snapshot) join the paging and export
// pipelines.
func (e *Executor) Stage(ctx context.Context, rows []result.Row, fields []result.Field) (string, error) {
	id := newStageID()
	staged := &result.StagedResultSet{Rows: rows, Fields: fields}
	payload, err := staged.Encode()
	if err != nil {
		return "", fmt.Errorf("serialize staged result: %w", err)
	}

	if err := e.store.Set(ctx, result.StageKey(id), payload, e.ttl); err != nil {
		return "", fmt.Errorf("stage result %s: %w", id, err)
	}

	slog.Info("Staged result set",
		"result_id", id,
		"rows", len(rows),
		"ttl", e.ttl,
	)
	return id, nil
}

// newStageID generates the time-based identifier for a staged result.
// Nanosecond resolution keeps keys unique across executions within one
// process; entries are write-once so collisions are never overwritten
// mid-read.
func newStageID() string {
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}

func describeFields(streamer driver.RowStreamer) ([]result.Field, error) {
	columns, err := streamer.Columns()
	if err != nil {
		return nil, err
	}

	fields := make([]result.Field, len(columns))
	for i, name := range columns {
		fields[i] = result.Field{Name: name}
	}

	// Data type names are best-effort; drivers that cannot report them
	// leave the descriptor name-only.
	if types, err := streamer.ColumnTypes(); err == nil && len(types) == len(fields) {
		for i, ct := range types {
			fields[i].DataType = ct.DatabaseTypeName()
		}
	}

	return fields, nil
}

func collectRows(ctx context.Context, streamer driver.RowStreamer, fields []result.Field) ([]result.Row, error) {
	colCount := len(fields)
	values := make([]interface{}, colCount)
	scanArgs := make([]interface{}, colCount)
	for i := range values {
		scanArgs[i] = &values[i]
	}

	rows := []result.Row{}
	for streamer.Next() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if err := streamer.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("row scan failed: %w", err)
		}

		row := make(result.Row, colCount)
		for i, f := range fields {
			row[f.Name] = normalize(values[i])
		}
		rows = append(rows, row)
	}

	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return rows, nil
}

// normalize converts driver types into JSON-friendly values so a row
// round-trips through the staged envelope unchanged.
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return v
	}
}
