package health

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/candig/fedsearch/pkg/events"
	"github.com/candig/fedsearch/pkg/storage"
	"github.com/candig/fedsearch/pkg/types"
)

func monitorFixture(t *testing.T, retries int) (*Monitor, storage.Store, events.Subscriber) {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	broker := events.NewBroker()
	broker.Start()
	t.Cleanup(broker.Stop)
	sub := broker.Subscribe()

	cfg := Config{
		Interval: time.Hour, // probes are driven manually in tests
		Timeout:  time.Second,
		Retries:  retries,
	}
	return NewMonitor(store, broker, cfg), store, sub
}

func addPeer(t *testing.T, store storage.Store, url string) *types.Peer {
	t.Helper()
	peer := &types.Peer{ID: "peer-1", URL: url, RegisteredAt: time.Now(), Healthy: true}
	if err := store.CreatePeer(peer); err != nil {
		t.Fatal(err)
	}
	return peer
}

func TestMonitorHealthyPeer(t *testing.T) {
	monitor, store, _ := monitorFixture(t, 3)

	var probes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			t.Errorf("unexpected probe path %s", r.URL.Path)
		}
		probes.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	addPeer(t, store, srv.URL)

	monitor.probeAll()

	if probes.Load() != 1 {
		t.Fatalf("expected 1 probe, got %d", probes.Load())
	}

	peer, err := store.GetPeer("peer-1")
	if err != nil {
		t.Fatal(err)
	}
	if !peer.Healthy {
		t.Error("peer should stay healthy")
	}
	if peer.LastSeen.IsZero() {
		t.Error("LastSeen should be set after a successful probe")
	}

	st, ok := monitor.PeerStatus("peer-1")
	if !ok || !st.Healthy {
		t.Error("monitor should track a healthy status")
	}
}

// Transitions follow the monitor's own probe state. A peer row carrying
// a stale unhealthy flag is repaired on the next successful probe
// without announcing a recovery that never happened.
func TestMonitorRepairsStaleFlagSilently(t *testing.T) {
	monitor, store, sub := monitorFixture(t, 3)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	peer := &types.Peer{ID: "peer-1", URL: srv.URL, RegisteredAt: time.Now(), Healthy: false}
	if err := store.CreatePeer(peer); err != nil {
		t.Fatal(err)
	}

	monitor.probeAll()
	monitor.probeAll()

	got, err := store.GetPeer("peer-1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Healthy {
		t.Error("probe result should be recorded on the peer row")
	}

	select {
	case event := <-sub:
		t.Fatalf("unexpected %s event for a peer that never failed a probe", event.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMonitorRetriesBeforeUnhealthy(t *testing.T) {
	monitor, store, sub := monitorFixture(t, 2)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	addPeer(t, store, srv.URL)

	// First failure stays under the retry threshold.
	monitor.probeAll()
	peer, _ := store.GetPeer("peer-1")
	if !peer.Healthy {
		t.Fatal("one failure must not flip the peer")
	}

	// Second failure crosses it.
	monitor.probeAll()
	peer, _ = store.GetPeer("peer-1")
	if peer.Healthy {
		t.Fatal("peer should be unhealthy after reaching the retry threshold")
	}

	select {
	case event := <-sub:
		if event.Type != events.EventPeerUnhealthy {
			t.Errorf("expected %s, got %s", events.EventPeerUnhealthy, event.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no transition event published")
	}
}

func TestMonitorRecovery(t *testing.T) {
	monitor, store, sub := monitorFixture(t, 1)

	var healthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()
	addPeer(t, store, srv.URL)

	monitor.probeAll()
	peer, _ := store.GetPeer("peer-1")
	if peer.Healthy {
		t.Fatal("peer should be unhealthy")
	}
	<-sub // unhealthy transition

	healthy.Store(true)
	monitor.probeAll()
	peer, _ = store.GetPeer("peer-1")
	if !peer.Healthy {
		t.Fatal("peer should have recovered")
	}

	select {
	case event := <-sub:
		if event.Type != events.EventPeerHealthy {
			t.Errorf("expected %s, got %s", events.EventPeerHealthy, event.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no recovery event published")
	}
}
