package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candig/fedsearch/pkg/types"
)

func TestFilterTier(t *testing.T) {
	patient, ok := EntityByName("patient")
	require.True(t, ok)

	rec := map[string]any{
		"id":          "p1",
		"name":        "PATIENT_0001",
		"datasetId":   "ds1",
		"gender":      "female",
		"ethnicity":   "unknown",
		"dateOfBirth": "1968-04-19",
	}

	tests := []struct {
		name   string
		tier   int
		fields []string
	}{
		{
			name:   "public tier sees only public fields",
			tier:   types.TierPublic,
			fields: []string{"id", "name", "datasetId", "gender"},
		},
		{
			name:   "registered tier adds demographics",
			tier:   types.TierRegistered,
			fields: []string{"id", "name", "datasetId", "gender", "ethnicity"},
		},
		{
			name:   "restricted tier sees dates",
			tier:   types.TierRestricted,
			fields: []string{"id", "name", "datasetId", "gender", "ethnicity", "dateOfBirth"},
		},
		{
			name:   "full tier sees everything",
			tier:   types.TierFull,
			fields: []string{"id", "name", "datasetId", "gender", "ethnicity", "dateOfBirth"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := patient.FilterTier(rec, tt.tier)
			assert.Len(t, out, len(tt.fields))
			for _, f := range tt.fields {
				assert.Contains(t, out, f)
			}
		})
	}
}

func TestFilterTierDropsUnknownFields(t *testing.T) {
	patient, ok := EntityByName("patient")
	require.True(t, ok)

	out := patient.FilterTier(map[string]any{
		"id":       "p1",
		"gender":   "male",
		"backdoor": "should never appear",
	}, types.TierFull)

	assert.NotContains(t, out, "backdoor")
	assert.Contains(t, out, "gender")
}

func TestFilterTierKeepsCommonFieldsAtZeroTier(t *testing.T) {
	outcome, ok := EntityByName("outcome")
	require.True(t, ok)

	// Every unique field of this record sits above tier zero; the record
	// must still come back with its identifying fields.
	out := outcome.FilterTier(map[string]any{
		"id":                "o1",
		"datasetId":         "ds1",
		"created":           "2026-01-01T00:00:00Z",
		"updated":           "2026-01-01T00:00:00Z",
		"heightAtDiagnosis": 172.0,
		"weightAtDiagnosis": 66.5,
	}, types.TierPublic)

	assert.Equal(t, map[string]any{
		"id":        "o1",
		"datasetId": "ds1",
		"created":   "2026-01-01T00:00:00Z",
		"updated":   "2026-01-01T00:00:00Z",
	}, out)
}

func TestEntityLookups(t *testing.T) {
	for _, e := range Entities {
		byPlural, ok := EntityByPlural(e.Plural)
		require.True(t, ok, e.Plural)
		assert.Same(t, e, byPlural)

		byName, ok := EntityByName(e.Name)
		require.True(t, ok, e.Name)
		assert.Same(t, e, byName)
	}

	_, ok := EntityByPlural("unicorns")
	assert.False(t, ok)
}
