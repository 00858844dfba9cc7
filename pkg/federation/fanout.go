package federation

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/candig/fedsearch/pkg/metrics"
	"github.com/candig/fedsearch/pkg/types"
)

// Headers of the peer-to-peer contract.
const (
	// HeaderFederation controls the loop guard. A peer receiving "False"
	// answers from its local backend only.
	HeaderFederation = "Federation"

	// federationStop is the value forwarded on every peer call.
	federationStop = "False"
)

// callPeer issues the inbound request against one peer and returns its
// status-vector slot. Concurrency across peers is capped by the
// federator's semaphore; excess calls queue until a worker frees up.
func (f *Federator) callPeer(ctx context.Context, peer *types.Peer, req *Request) slot {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return slot{status: http.StatusServiceUnavailable}
	}
	defer f.sem.Release(1)

	target, err := rewriteURL(req.URL, peer.URL)
	if err != nil {
		f.logger.Warn().Err(err).Str("peer_url", peer.URL).Msg("unusable peer URL")
		return slot{status: http.StatusServiceUnavailable}
	}

	var body io.Reader
	if req.Method == http.MethodPost {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return slot{status: http.StatusServiceUnavailable}
	}

	// Peer hops answer with serialized protobuf so the merger can
	// concatenate repeated fields without a JSON round-trip. The bearer
	// token is forwarded unchanged; the peer re-resolves access against
	// its own table.
	httpReq.Header.Set("Accept", "application/octet-stream")
	httpReq.Header.Set(HeaderFederation, federationStop)
	if req.Token != "" {
		httpReq.Header.Set("Authorization", req.Token)
	}
	if req.Method == http.MethodPost {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		// Connection failure or timeout. No retries.
		f.logger.Warn().Err(err).Str("peer_url", peer.URL).Msg("peer unreachable")
		metrics.PeerRequestsTotal.WithLabelValues(peer.URL, "503").Inc()
		return slot{status: http.StatusServiceUnavailable}
	}
	defer resp.Body.Close()

	metrics.PeerRequestsTotal.WithLabelValues(peer.URL, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		return slot{status: resp.StatusCode}
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return slot{status: http.StatusServiceUnavailable}
	}
	return slot{status: http.StatusOK, body: payload}
}

// rewriteURL swaps the inbound host prefix for the peer's base URL while
// preserving path and query, so the peer sees exactly the URL the origin
// client used.
func rewriteURL(inbound *url.URL, peerBase string) (string, error) {
	base, err := url.Parse(peerBase)
	if err != nil {
		return "", err
	}
	out := *inbound
	out.Scheme = base.Scheme
	out.Host = base.Host
	if p := strings.TrimSuffix(base.Path, "/"); p != "" {
		out.Path = p + inbound.Path
	}
	return out.String(), nil
}
