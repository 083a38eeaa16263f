package result

import (
	"encoding/json"
	"fmt"
)

// Row maps column names to values for a single result row.
type Row map[string]any

// Field describes one output column. DataType is the database type name
// when the driver reports it, empty otherwise.
type Field struct {
	Name     string `json:"name"`
	DataType string `json:"dataType,omitempty"`
}

// QueryResult is the outcome of a single execution. When the row count
// exceeds the staging threshold, Rows is nil and ResultID addresses the
// staged copy instead.
type QueryResult struct {
	IsLargeResult bool    `json:"isLargeResult"`
	ResultID      string  `json:"resultId,omitempty"`
	RowCount      int     `json:"rowCount"`
	Rows          []Row   `json:"rows,omitempty"`
	Fields        []Field `json:"fields"`
}

// StagedResultSet is the serialized form kept in the cache. Rows and
// field descriptors travel together so a later page request can
// reconstruct column names without re-querying.
type StagedResultSet struct {
	Rows   []Row   `json:"rows"`
	Fields []Field `json:"fields"`
}

// Encode serializes the staged set to its cache representation.
func (s *StagedResultSet) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// DecodeStaged parses a cache entry back into a staged set and validates
// its shape. A malformed entry fails here rather than surfacing as a
// panic deeper in the pager.
func DecodeStaged(data []byte) (*StagedResultSet, error) {
	var s StagedResultSet
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("malformed staged result: %w", err)
	}
	if s.Rows == nil || s.Fields == nil {
		return nil, fmt.Errorf("malformed staged result: missing rows or fields")
	}
	return &s, nil
}

// PageMetadata annotates a page response with boundary information.
type PageMetadata struct {
	TotalRows       int  `json:"totalRows"`
	TotalPages      int  `json:"totalPages"`
	PageSize        int  `json:"pageSize"`
	CurrentPage     int  `json:"currentPage"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// PageResponse is a bounded slice of a staged result.
type PageResponse struct {
	Rows     []Row        `json:"rows"`
	Fields   []Field      `json:"fields"`
	Metadata PageMetadata `json:"metadata"`
}

// HealthStatus reports the probed connection state, not the cached flag.
type HealthStatus struct {
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}
