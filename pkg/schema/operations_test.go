package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/candig/fedsearch/pkg/types"
)

func TestOperationTable(t *testing.T) {
	tests := []struct {
		name   string
		method string
		count  bool
	}{
		{"getPatient", "GET", false},
		{"searchPatients", "POST", false},
		{"getSample", "GET", false},
		{"searchDiagnoses", "POST", false},
		{"getDataset", "GET", false},
		{"searchDatasets", "POST", false},
		{"runCountQuery", "POST", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, ok := Lookup(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.method, op.Method)
			assert.Equal(t, tt.count, op.Count)
			assert.NotNil(t, op.ResponseDescriptor())
		})
	}

	_, ok := Lookup("dropAllTables")
	assert.False(t, ok)
}

// Every operation must come out of package initialization with its wire
// descriptor bound, no matter which source file initializes first. An
// unbound descriptor would panic on the first Append of any request.
func TestEveryOperationHasBoundDescriptor(t *testing.T) {
	for _, e := range Entities {
		for _, op := range []*Operation{GetOperation(e), SearchOperation(e)} {
			require.NotNil(t, op, "missing operation for %s", e.Name)
			require.NotNil(t, op.ResponseDescriptor(), "%s has no descriptor", op.Name)

			msg := op.NewResponse()
			require.NoError(t, op.Append(msg, map[string]any{"id": "x"}))
			assert.Equal(t, 1, op.Len(msg))
		}
	}

	count := CountOperation()
	require.NotNil(t, count.ResponseDescriptor())
	assert.NotPanics(t, func() { count.NewResponse() })
}

func TestAppendAndElementsRoundTrip(t *testing.T) {
	patient, _ := EntityByName("patient")
	op := SearchOperation(patient)

	msg := op.NewResponse()
	require.NoError(t, op.Append(msg, map[string]any{"id": "p1", "gender": "female"}))
	require.NoError(t, op.Append(msg, map[string]any{"id": "p2", "gender": "male"}))
	op.SetTotal(msg, 2)

	assert.Equal(t, 2, op.Len(msg))

	elems := op.Elements(msg)
	require.Len(t, elems, 2)
	assert.Equal(t, "p1", elems[0]["id"])
	assert.Equal(t, "male", elems[1]["gender"])
}

// Merging two serialized responses must concatenate their repeated
// records, which is what lets peer replies accumulate into one message.
func TestMergeConcatenatesRecords(t *testing.T) {
	patient, _ := EntityByName("patient")
	op := SearchOperation(patient)

	first := op.NewResponse()
	require.NoError(t, op.Append(first, map[string]any{"id": "a"}))
	second := op.NewResponse()
	require.NoError(t, op.Append(second, map[string]any{"id": "b"}))
	require.NoError(t, op.Append(second, map[string]any{"id": "c"}))

	rawFirst, err := proto.Marshal(first)
	require.NoError(t, err)
	rawSecond, err := proto.Marshal(second)
	require.NoError(t, err)

	acc := op.NewResponse()
	for _, raw := range [][]byte{rawFirst, rawSecond} {
		next := op.NewResponse()
		require.NoError(t, proto.Unmarshal(raw, next))
		proto.Merge(acc, next)
	}

	assert.Equal(t, 3, op.Len(acc))
	ids := []string{}
	for _, el := range op.Elements(acc) {
		ids = append(ids, el["id"].(string))
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestWireForm(t *testing.T) {
	created := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	rec := &types.Record{
		ID:        "p1",
		Name:      "PATIENT_0001",
		DatasetID: "ds1",
		Entity:    "patient",
		Created:   created,
		Updated:   created,
		Fields:    map[string]any{"gender": "female"},
	}

	wire := WireForm(rec)
	assert.Equal(t, "p1", wire["id"])
	assert.Equal(t, "ds1", wire["datasetId"])
	assert.Equal(t, "2026-02-03T04:05:06Z", wire["created"])
	assert.Equal(t, "female", wire["gender"])
	assert.NotContains(t, wire, "description")
}
