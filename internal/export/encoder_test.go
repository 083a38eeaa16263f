package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querybridge/internal/result"
)

func TestCSVEncoder(t *testing.T) {
	var buf bytes.Buffer
	enc := NewCSVEncoder(&buf)

	require.NoError(t, enc.WriteHeader([]string{"id", "name", "active"}))
	require.NoError(t, enc.WriteRow([]interface{}{int64(1), "alice", true}))
	require.NoError(t, enc.WriteRow([]interface{}{int64(2), nil, false}))
	require.NoError(t, enc.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,name,active", lines[0])
	assert.Equal(t, "1,alice,1", lines[1])
	assert.Equal(t, "2,NULL,0", lines[2])
}

func TestCSVEncoderNeutralizesFormulas(t *testing.T) {
	var buf bytes.Buffer
	enc := NewCSVEncoder(&buf)

	require.NoError(t, enc.WriteHeader([]string{"v"}))
	require.NoError(t, enc.WriteRow([]interface{}{"=SUM(A1:A9)"}))
	require.NoError(t, enc.WriteRow([]interface{}{"@cmd"}))
	require.NoError(t, enc.WriteRow([]interface{}{"+1234"}))
	require.NoError(t, enc.Close())

	out := buf.String()
	assert.Contains(t, out, "'=SUM(A1:A9)")
	assert.Contains(t, out, "'@cmd")
	assert.Contains(t, out, "'+1234")
}

func TestCSVEncoderFormatsTime(t *testing.T) {
	var buf bytes.Buffer
	enc := NewCSVEncoder(&buf)

	ts := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	require.NoError(t, enc.WriteHeader([]string{"created_at"}))
	require.NoError(t, enc.WriteRow([]interface{}{ts}))
	require.NoError(t, enc.Close())

	assert.Contains(t, buf.String(), "2026-01-02 15:04:05")
}

func TestJSONEncoder(t *testing.T) {
	var buf bytes.Buffer
	enc := NewJSONEncoder(&buf)

	require.NoError(t, enc.WriteHeader([]string{"id", "name"}))
	require.NoError(t, enc.WriteRow([]interface{}{float64(1), []byte("bob")}))
	require.NoError(t, enc.WriteRow([]interface{}{float64(2), "carol"}))
	require.NoError(t, enc.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var row map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &row))
	assert.Equal(t, float64(1), row["id"])
	// Byte slices are written as plain strings, not base64.
	assert.Equal(t, "bob", row["name"])
}

func TestWriteStagedPreservesFieldOrder(t *testing.T) {
	staged := &result.StagedResultSet{
		Rows: []result.Row{
			{"b": "2", "a": "1"},
			{"b": "4", "a": "3"},
		},
		Fields: []result.Field{{Name: "b"}, {Name: "a"}},
	}

	var buf bytes.Buffer
	enc := NewCSVEncoder(&buf)
	require.NoError(t, WriteStaged(enc, staged, nil))
	require.NoError(t, enc.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "b,a", lines[0])
	assert.Equal(t, "2,1", lines[1])
	assert.Equal(t, "4,3", lines[2])
}

func TestWriteStagedRowCallback(t *testing.T) {
	staged := &result.StagedResultSet{
		Rows:   []result.Row{{"n": "1"}, {"n": "2"}, {"n": "3"}},
		Fields: []result.Field{{Name: "n"}},
	}

	var counts []int
	var buf bytes.Buffer
	err := WriteStaged(NewCSVEncoder(&buf), staged, func(written int) error {
		counts = append(counts, written)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, counts)
}

func TestWriteStagedCallbackAborts(t *testing.T) {
	staged := &result.StagedResultSet{
		Rows:   []result.Row{{"n": "1"}, {"n": "2"}, {"n": "3"}},
		Fields: []result.Field{{Name: "n"}},
	}

	stop := errors.New("cancelled")
	var buf bytes.Buffer
	err := WriteStaged(NewCSVEncoder(&buf), staged, func(written int) error {
		if written == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
}
