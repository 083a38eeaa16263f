package export

import (
	"io"

	"querybridge/internal/result"
)

// RowEncoder is the common interface for the export formats (CSV, JSON,
// Excel, PDF). It keeps the export pipeline agnostic of the output.
type RowEncoder interface {
	// WriteHeader writes the column headers. Called exactly once, first.
	WriteHeader(columns []string) error

	// WriteRow writes a single row of data, ordered like the headers.
	WriteRow(values []interface{}) error

	// Flush pushes buffered data to the underlying writer.
	Flush() error

	// Error returns the first error seen during encoding, if any.
	Error() error

	// Close flushes and releases resources. For Excel this writes the
	// workbook footer.
	io.Closer
}

// WriteStaged streams a staged result set through an encoder. Values
// are emitted in field-descriptor order so every format gets stable
// columns regardless of map iteration. onRow, when non-nil, runs after
// each row with the count written so far; a non-nil return aborts the
// stream.
func WriteStaged(enc RowEncoder, staged *result.StagedResultSet, onRow func(written int) error) error {
	columns := make([]string, len(staged.Fields))
	for i, f := range staged.Fields {
		columns[i] = f.Name
	}

	if err := enc.WriteHeader(columns); err != nil {
		return err
	}

	values := make([]interface{}, len(columns))
	for n, row := range staged.Rows {
		for i, col := range columns {
			values[i] = row[col]
		}
		if err := enc.WriteRow(values); err != nil {
			return err
		}
		if onRow != nil {
			if err := onRow(n + 1); err != nil {
				return err
			}
		}
	}

	if err := enc.Flush(); err != nil {
		return err
	}
	return enc.Error()
}
