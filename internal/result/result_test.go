package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStagedRoundTrip(t *testing.T) {
	staged := &StagedResultSet{
		Rows:   []Row{{"id": float64(1), "name": "a"}, {"id": float64(2), "name": "b"}},
		Fields: []Field{{Name: "id", DataType: "INT8"}, {Name: "name"}},
	}

	payload, err := staged.Encode()
	require.NoError(t, err)

	decoded, err := DecodeStaged(payload)
	require.NoError(t, err)
	assert.Equal(t, staged.Rows, decoded.Rows)
	assert.Equal(t, staged.Fields, decoded.Fields)
}

func TestDecodeStagedRejectsGarbage(t *testing.T) {
	_, err := DecodeStaged([]byte("not json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed staged result")
}

func TestDecodeStagedRejectsMissingSections(t *testing.T) {
	_, err := DecodeStaged([]byte(`{"rows":[{"id":1}]}`))
	require.Error(t, err)

	_, err = DecodeStaged([]byte(`{"fields":[{"name":"id"}]}`))
	require.Error(t, err)
}

func TestStageKey(t *testing.T) {
	assert.Equal(t, "query:1755791234567890", StageKey("1755791234567890"))
}
