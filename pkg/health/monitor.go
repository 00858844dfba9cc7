package health

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/candig/fedsearch/pkg/events"
	"github.com/candig/fedsearch/pkg/log"
	"github.com/candig/fedsearch/pkg/storage"
	"github.com/candig/fedsearch/pkg/types"
)

// Monitor probes every registered peer on a fixed interval and records
// the outcome on the peer row. Probing is read-only with respect to the
// peer set: an unhealthy peer is flagged, never removed, and still
// counts as a known peer during federation.
type Monitor struct {
	store  storage.Store
	broker *events.Broker
	cfg    Config
	logger zerolog.Logger

	mu     sync.Mutex
	status map[string]*Status // by peer ID
	stopCh chan struct{}
}

// NewMonitor creates a peer health monitor.
func NewMonitor(store storage.Store, broker *events.Broker, cfg Config) *Monitor {
	return &Monitor{
		store:  store,
		broker: broker,
		cfg:    cfg,
		logger: log.WithComponent("health"),
		status: make(map[string]*Status),
		stopCh: make(chan struct{}),
	}
}

// Start begins the probe loop.
func (m *Monitor) Start() {
	go m.run()
}

// Stop stops the probe loop.
func (m *Monitor) Stop() {
	close(m.stopCh)
}

func (m *Monitor) run() {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	// Probe immediately on start
	m.probeAll()

	for {
		select {
		case <-ticker.C:
			m.probeAll()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Monitor) probeAll() {
	peers, err := m.store.ListPeers()
	if err != nil {
		m.logger.Error().Err(err).Msg("peer listing failed")
		return
	}

	for _, peer := range peers {
		m.probe(peer)
	}
}

// probe runs one health check against a peer's /healthz endpoint and
// applies the retry threshold before flipping the peer to unhealthy.
func (m *Monitor) probe(peer *types.Peer) {
	checker := NewPeerChecker(peer.URL).WithTimeout(m.cfg.Timeout)

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Timeout)
	defer cancel()
	result := checker.Check(ctx)

	m.mu.Lock()
	st, ok := m.status[peer.ID]
	if !ok {
		st = &Status{Healthy: true}
		m.status[peer.ID] = st
	}
	st.LastCheck = result.CheckedAt
	st.LastResult = result
	if result.Healthy {
		st.ConsecutiveFailures = 0
	} else {
		st.ConsecutiveFailures++
	}

	wasHealthy := st.Healthy
	st.Healthy = result.Healthy || st.ConsecutiveFailures < m.cfg.Retries
	nowHealthy := st.Healthy
	m.mu.Unlock()

	if result.Healthy {
		peer.LastSeen = result.CheckedAt
	}
	peer.Healthy = nowHealthy
	if wasHealthy != nowHealthy {
		m.publishTransition(peer, nowHealthy, result.Message)
	}
	if err := m.store.UpdatePeer(peer); err != nil {
		m.logger.Error().Err(err).Str("peer_url", peer.URL).Msg("failed to record probe result")
	}
}

func (m *Monitor) publishTransition(peer *types.Peer, healthy bool, message string) {
	eventType := events.EventPeerUnhealthy
	if healthy {
		eventType = events.EventPeerHealthy
	}
	m.logger.Info().
		Str("peer_url", peer.URL).
		Bool("healthy", healthy).
		Str("result", message).
		Msg("peer health transition")

	if m.broker != nil {
		m.broker.Publish(&events.Event{
			ID:      peer.ID,
			Type:    eventType,
			Message: message,
			Metadata: map[string]string{
				"peer_url": peer.URL,
			},
		})
	}
}

// PeerStatus returns a copy of the probing state for one peer.
func (m *Monitor) PeerStatus(peerID string) (Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.status[peerID]
	if !ok {
		return Status{}, false
	}
	return *st, true
}
