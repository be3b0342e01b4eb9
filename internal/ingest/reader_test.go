package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestReadBatch_Valid(t *testing.T) {
	input := `{"source_id":"gp","record_id":1,"entity_type":"place","fields":{"name":"Padel Club"}}
{"source_id":"ss","record_id":2,"entity_type":"place","fields":{"name":"Padel Club"},"external_ids":{"places_api":"X123"}}`

	records, err := ReadBatch(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "gp", records[0].SourceID)
	assert.Equal(t, int64(2), records[1].RecordID)
	assert.Equal(t, "X123", records[1].ExternalIDs["places_api"])
}

func TestReadBatch_SkipsBlankAndMalformedLines(t *testing.T) {
	input := `{"source_id":"gp","record_id":1,"entity_type":"place","fields":{}}

not json at all
{"source_id":"ss","record_id":2,"entity_type":"place","fields":{}}`

	records, err := ReadBatch(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestReadBatch_MissingSourceIDFails(t *testing.T) {
	input := `{"record_id":1,"entity_type":"place","fields":{}}`

	_, err := ReadBatch(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source_id")
}

func TestReadBatch_MissingRecordIDFails(t *testing.T) {
	input := `{"source_id":"gp","entity_type":"place","fields":{}}`

	_, err := ReadBatch(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record_id")
}

func TestReadBatch_DuplicateRecordIDFails(t *testing.T) {
	input := `{"source_id":"gp","record_id":7,"entity_type":"place","fields":{}}
{"source_id":"ss","record_id":7,"entity_type":"place","fields":{}}`

	_, err := ReadBatch(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate record_id")
}

func TestReadBatch_Empty(t *testing.T) {
	records, err := ReadBatch(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadBatchFile_Missing(t *testing.T) {
	_, err := ReadBatchFile("/nonexistent/batch.jsonl")
	require.Error(t, err)
}
