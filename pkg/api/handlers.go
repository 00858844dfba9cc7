package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/candig/fedsearch/pkg/events"
	"github.com/candig/fedsearch/pkg/federation"
	"github.com/candig/fedsearch/pkg/metrics"
	"github.com/candig/fedsearch/pkg/schema"
	"github.com/candig/fedsearch/pkg/types"
)

// maxBodyBytes caps search and count request bodies.
const maxBodyBytes = 1 << 20

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	entity, ok := schema.EntityByPlural(r.PathValue("entity"))
	if !ok {
		s.writeError(w, r, types.E(types.KindNotFound, "unknown collection %q", r.PathValue("entity")))
		return
	}
	s.serve(w, r, schema.GetOperation(entity), r.PathValue("id"), nil)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	entity, ok := schema.EntityByPlural(r.PathValue("entity"))
	if !ok {
		s.writeError(w, r, types.E(types.KindNotFound, "unknown collection %q", r.PathValue("entity")))
		return
	}
	body, err := readBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	op := schema.SearchOperation(entity)
	if err := s.backend.Validate(op, body); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.serve(w, r, op, "", body)
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	op := schema.CountOperation()
	if err := s.backend.Validate(op, body); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.serve(w, r, op, "", body)
}

// serve resolves access, then either answers the hop path with raw
// protobuf or fans the request out and answers with a JSON envelope.
// Malformed bodies were already rejected, so peers are never called for
// a request the origin could have refused itself.
func (s *Server) serve(w http.ResponseWriter, r *http.Request, op *schema.Operation, id string, body []byte) {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDurationVec(metrics.APIRequestDuration, op.Name)
	}()

	access, err := s.resolver.Resolve(r.Header)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	req := &federation.Request{
		Operation: op,
		Method:    r.Method,
		ID:        id,
		Body:      body,
		URL:       requestURL(r),
		Token:     r.Header.Get("Authorization"),
	}

	if isHop(r) {
		metrics.HopRequestsTotal.Inc()
		raw, status := s.fed.Local(r.Context(), req, access)
		metrics.APIRequestsTotal.WithLabelValues(op.Name, strconv.Itoa(status)).Inc()
		if status != http.StatusOK {
			writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(http.StatusOK)
		w.Write(raw)
		return
	}

	env, err := s.fed.Federate(r.Context(), req, access)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	metrics.FederatedRequestsTotal.WithLabelValues(strconv.FormatBool(env.Status.ValidResponse)).Inc()
	metrics.APIRequestsTotal.WithLabelValues(op.Name, "200").Inc()
	writeJSON(w, http.StatusOK, env)
}

// isHop reports whether a peer marked this request as already federated.
func isHop(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get(federation.HeaderFederation), "false")
}

func (s *Server) handleListPeers(w http.ResponseWriter, r *http.Request) {
	peers, err := s.store.ListPeers()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"peers": peers,
		"total": len(peers),
	})
}

type announceRequest struct {
	URL        string            `json:"url"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// handleAnnounce registers a peer node or refreshes an existing one.
// Announce is idempotent on the peer URL.
func (s *Server) handleAnnounce(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var ann announceRequest
	if err := json.Unmarshal(body, &ann); err != nil {
		s.writeError(w, r, types.E(types.KindBadRequest, "invalid announce body: %v", err))
		return
	}
	u, err := url.Parse(ann.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		s.writeError(w, r, types.E(types.KindBadRequest, "invalid peer URL %q", ann.URL))
		return
	}

	now := time.Now()
	peer, err := s.store.GetPeerByURL(ann.URL)
	switch {
	case err == nil:
		peer.Attributes = ann.Attributes
		peer.LastSeen = now
		if err := s.store.UpdatePeer(peer); err != nil {
			s.writeError(w, r, err)
			return
		}
	case types.KindOf(err) == types.KindNotFound:
		peer = &types.Peer{
			ID:           uuid.New().String(),
			URL:          ann.URL,
			Attributes:   ann.Attributes,
			RegisteredAt: now,
			LastSeen:     now,
			Healthy:      true,
		}
		if err := s.store.CreatePeer(peer); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.broker.Publish(&events.Event{
			Type:     events.EventPeerAnnounced,
			Message:  peer.URL,
			Metadata: map[string]string{"peer_id": peer.ID},
		})
		s.logger.Info().Str("peer", peer.URL).Msg("Peer announced")
	default:
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, peer)
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := s.store.ListDatasets()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"datasets": datasets,
		"total":    len(datasets),
	})
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err != nil {
		return nil, types.E(types.KindBadRequest, "reading request body: %v", err)
	}
	return body, nil
}

// requestURL rebuilds the absolute inbound URL so the federator can
// rewrite it per peer.
func requestURL(r *http.Request) *url.URL {
	u := *r.URL
	u.Host = r.Host
	u.Scheme = "http"
	if r.TLS != nil {
		u.Scheme = "https"
	}
	return &u
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := types.KindOf(err)
	status := kind.HTTPStatus()
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"kind":  kind.String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
