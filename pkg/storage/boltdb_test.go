package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candig/fedsearch/pkg/types"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPeerCRUD(t *testing.T) {
	store := newTestStore(t)

	peer := &types.Peer{
		ID:           "peer-1",
		URL:          "http://node2.example.org:3000",
		RegisteredAt: time.Now(),
		Healthy:      true,
	}
	require.NoError(t, store.CreatePeer(peer))

	got, err := store.GetPeer("peer-1")
	require.NoError(t, err)
	assert.Equal(t, peer.URL, got.URL)

	byURL, err := store.GetPeerByURL(peer.URL)
	require.NoError(t, err)
	assert.Equal(t, "peer-1", byURL.ID)

	peer.Healthy = false
	require.NoError(t, store.UpdatePeer(peer))
	got, err = store.GetPeer("peer-1")
	require.NoError(t, err)
	assert.False(t, got.Healthy)

	peers, err := store.ListPeers()
	require.NoError(t, err)
	assert.Len(t, peers, 1)

	require.NoError(t, store.DeletePeer("peer-1"))
	_, err = store.GetPeer("peer-1")
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
}

func TestDatasetCRUD(t *testing.T) {
	store := newTestStore(t)

	ds := &types.Dataset{ID: "ds-1", Name: "mohccn", CreatedAt: time.Now()}
	require.NoError(t, store.CreateDataset(ds))

	got, err := store.GetDataset("ds-1")
	require.NoError(t, err)
	assert.Equal(t, "mohccn", got.Name)

	byName, err := store.GetDatasetByName("mohccn")
	require.NoError(t, err)
	assert.Equal(t, "ds-1", byName.ID)

	_, err = store.GetDatasetByName("absent")
	assert.Equal(t, types.KindNotFound, types.KindOf(err))

	require.NoError(t, store.DeleteDataset("ds-1"))
	_, err = store.GetDataset("ds-1")
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
}

func TestAccessRules(t *testing.T) {
	store := newTestStore(t)

	rule := &types.AccessRule{
		Issuer:   "https://sso.example.org",
		Username: "researcher1",
		Access:   types.AccessMap{"mohccn": 4, "pilot": 1},
	}
	require.NoError(t, store.PutAccessRule(rule))

	got, err := store.GetAccessRule(rule.Issuer, rule.Username)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Access["mohccn"])
	assert.Equal(t, 1, got.Access["pilot"])

	_, err = store.GetAccessRule(rule.Issuer, "stranger")
	assert.Equal(t, types.KindNotFound, types.KindOf(err))

	rules, err := store.ListAccessRules()
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

func TestRecordsNamespacedByEntity(t *testing.T) {
	store := newTestStore(t)

	now := time.Now()
	require.NoError(t, store.PutRecord(&types.Record{
		ID: "x", Entity: "patient", DatasetID: "ds-1", Created: now, Updated: now,
	}))
	require.NoError(t, store.PutRecord(&types.Record{
		ID: "x", Entity: "sample", DatasetID: "ds-1", Created: now, Updated: now,
	}))
	require.NoError(t, store.PutRecord(&types.Record{
		ID: "y", Entity: "patient", DatasetID: "ds-2", Created: now, Updated: now,
	}))

	// Same id in different entities must not collide.
	patient, err := store.GetRecord("patient", "x")
	require.NoError(t, err)
	assert.Equal(t, "patient", patient.Entity)

	patients, err := store.ListRecords("patient")
	require.NoError(t, err)
	assert.Len(t, patients, 2)

	samples, err := store.ListRecords("sample")
	require.NoError(t, err)
	assert.Len(t, samples, 1)

	byDataset, err := store.ListRecordsByDataset("patient", "ds-2")
	require.NoError(t, err)
	require.Len(t, byDataset, 1)
	assert.Equal(t, "y", byDataset[0].ID)

	require.NoError(t, store.DeleteRecord("patient", "x"))
	_, err = store.GetRecord("patient", "x")
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
}
