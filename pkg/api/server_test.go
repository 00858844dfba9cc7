package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/candig/fedsearch/pkg/events"
	"github.com/candig/fedsearch/pkg/federation"
	"github.com/candig/fedsearch/pkg/schema"
	"github.com/candig/fedsearch/pkg/storage"
	"github.com/candig/fedsearch/pkg/types"
)

func newTestServer(t *testing.T) (*httptest.Server, storage.Store) {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	now := time.Now()
	require.NoError(t, store.CreateDataset(&types.Dataset{ID: "ds-1", Name: "mohccn", CreatedAt: now}))
	require.NoError(t, store.PutRecord(&types.Record{
		ID:        "p1",
		DatasetID: "ds-1",
		Entity:    "patient",
		Created:   now,
		Updated:   now,
		Fields:    map[string]any{"gender": "female"},
	}))

	cfg := types.DefaultConfig()
	cfg.PeerTimeout = 2 * time.Second

	broker := events.NewBroker()
	broker.Start()
	t.Cleanup(broker.Stop)

	srv := httptest.NewServer(NewServer(cfg, store, broker).Handler())
	t.Cleanup(srv.Close)
	return srv, store
}

func TestGetReturnsEnvelope(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/patients/p1")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var env federation.Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.True(t, env.Status.ValidResponse)
	assert.Equal(t, 1, env.Status.KnownPeers)
	assert.Contains(t, env.Results, "patients")
}

// The envelope's status keys are a network contract and must not be
// renamed by JSON conventions.
func TestEnvelopeStatusKeys(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/patients/p1")
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	status := raw["status"].(map[string]any)
	for _, key := range []string{"Known peers", "Queried peers", "Successful communications", "Valid response"} {
		assert.Contains(t, status, key)
	}
}

func TestHopAnswersRawProtobuf(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/patients/p1", nil)
	require.NoError(t, err)
	req.Header.Set(federation.HeaderFederation, "False")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))

	entity, _ := schema.EntityByPlural("patients")
	op := schema.GetOperation(entity)
	msg := op.NewResponse()
	body := new(bytes.Buffer)
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	require.NoError(t, proto.Unmarshal(body.Bytes(), msg))
	assert.Equal(t, 1, op.Len(msg))
}

func TestHopNotFoundStaysBare(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/patients/ghost", nil)
	require.NoError(t, err)
	req.Header.Set(federation.HeaderFederation, "False")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUnknownCollection(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/starships/x")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSearchRejectsMalformedBodyBeforeFanout(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/patients/search", "application/json",
		bytes.NewReader([]byte(`{"pageSize":-5}`)))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "bad_request", body["kind"])
}

func TestCountEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/count", "application/json",
		bytes.NewReader([]byte(`{"entity":"patient","fields":["gender"]}`)))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env federation.Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	counts := env.Results[schema.CountsKey].(map[string]any)
	gender := counts["gender"].(map[string]any)
	assert.Equal(t, float64(1), gender["female"])
}

func TestAnnounceRegistersPeer(t *testing.T) {
	srv, store := newTestServer(t)

	body := []byte(`{"url":"http://node2.example.org:3000","attributes":{"region":"east"}}`)
	resp, err := http.Post(srv.URL+"/v1/announce", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	peer, err := store.GetPeerByURL("http://node2.example.org:3000")
	require.NoError(t, err)
	assert.Equal(t, "east", peer.Attributes["region"])

	// Announcing the same URL again refreshes instead of duplicating.
	resp, err = http.Post(srv.URL+"/v1/announce", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()

	peers, err := store.ListPeers()
	require.NoError(t, err)
	assert.Len(t, peers, 1)
}

func TestAnnounceRejectsBadURL(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/announce", "application/json",
		bytes.NewReader([]byte(`{"url":"ftp://nope"}`)))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListDatasets(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/datasets")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Datasets []*types.Dataset `json:"datasets"`
		Total    int              `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 1, out.Total)
	assert.Equal(t, "mohccn", out.Datasets[0].Name)
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/livez", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err, path)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/datasets")
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}
