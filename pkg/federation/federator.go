package federation

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/candig/fedsearch/pkg/log"
	"github.com/candig/fedsearch/pkg/schema"
	"github.com/candig/fedsearch/pkg/storage"
	"github.com/candig/fedsearch/pkg/types"
)

// LocalBackend is the contract to the local data layer. Implementations
// return the operation's response in serialized protobuf form and report
// domain failures as kind-classified errors.
type LocalBackend interface {
	Get(ctx context.Context, op *schema.Operation, id string, access types.AccessMap) ([]byte, error)
	Search(ctx context.Context, op *schema.Operation, body []byte, access types.AccessMap) ([]byte, error)
	Count(ctx context.Context, op *schema.Operation, body []byte, access types.AccessMap) ([]byte, error)
}

// Request is the inbound unit of work. It is immutable after receipt.
type Request struct {
	Operation *schema.Operation
	Method    string
	ID        string   // set for GET
	Body      []byte   // set for POST, already JSON-shaped
	URL       *url.URL // inbound URL; rewritten per peer
	Token     string   // raw Authorization header, forwarded verbatim
}

// Federator fans one inbound request out to every registered peer,
// merges the responses with the local answer, and reports per-slot
// communication status.
type Federator struct {
	store   storage.Store
	local   LocalBackend
	client  *http.Client
	sem     *semaphore.Weighted
	timeout time.Duration
	logger  zerolog.Logger
}

// NewFederator creates a federator with a bounded outbound worker pool.
func NewFederator(store storage.Store, local LocalBackend, cfg *types.Config) *Federator {
	return &Federator{
		store:   store,
		local:   local,
		client:  &http.Client{Timeout: cfg.PeerTimeout},
		sem:     semaphore.NewWeighted(int64(cfg.FanoutLimit)),
		timeout: cfg.PeerTimeout,
		logger:  log.WithComponent("federation"),
	}
}

// slot is one entry of the status vector, with the body to merge when the
// call succeeded.
type slot struct {
	status int
	body   []byte
}

// Local answers the request from the local backend only. This is the hop
// path: a request carrying Federation: False must not fan out again, and
// its reply stays at the data-model layer (raw protobuf, no envelope).
func (f *Federator) Local(ctx context.Context, req *Request, access types.AccessMap) ([]byte, int) {
	s := f.dispatch(ctx, req, access)
	return s.body, s.status
}

// Federate answers the request as an origin node: local dispatch and peer
// fan-out run concurrently, responses are merged in completion order, and
// the result is wrapped in the federation envelope. Per-peer failures
// never surface as errors; they become status-vector slots.
func (f *Federator) Federate(ctx context.Context, req *Request, access types.AccessMap) (*Envelope, error) {
	peers, err := f.store.ListPeers()
	if err != nil {
		return nil, types.Wrap(types.KindInternal, err, "peer listing failed")
	}

	results := make(chan slot, len(peers)+1)
	go func() {
		results <- f.dispatch(ctx, req, access)
	}()
	for _, peer := range peers {
		go func(p *types.Peer) {
			results <- f.callPeer(ctx, p, req)
		}(peer)
	}

	op := req.Operation
	acc := op.NewResponse()
	statuses := make([]int, 0, len(peers)+1)
	for i := 0; i < len(peers)+1; i++ {
		s := <-results
		if s.status == http.StatusOK {
			if err := mergeBody(acc, op, s.body); err != nil {
				// The body does not parse as the declared response type;
				// the slot becomes 500 and the accumulator is unchanged.
				f.logger.Warn().Err(err).Str("operation", op.Name).Msg("discarding malformed response")
				s.status = http.StatusInternalServerError
			}
		}
		statuses = append(statuses, s.status)
	}

	return buildEnvelope(req, acc, statuses)
}

// dispatch invokes the local backend and maps domain errors to the local
// status slot. Local failures do not prevent peer fan-out.
func (f *Federator) dispatch(ctx context.Context, req *Request, access types.AccessMap) slot {
	op := req.Operation
	var body []byte
	var err error
	switch {
	case op.Count:
		body, err = f.local.Count(ctx, op, req.Body, access)
	case req.Method == http.MethodGet:
		body, err = f.local.Get(ctx, op, req.ID, access)
	default:
		body, err = f.local.Search(ctx, op, req.Body, access)
	}
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			f.logger.Error().Err(err).Str("operation", op.Name).Msg("local dispatch failed")
		}
		return slot{status: status}
	}
	return slot{status: http.StatusOK, body: body}
}

// statusFor maps a local dispatch error onto its status-vector value.
func statusFor(err error) int {
	switch types.KindOf(err) {
	case types.KindNotFound:
		return http.StatusNotFound
	case types.KindUnauthorized:
		return http.StatusUnauthorized
	case types.KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// KnownPeers reports the registry's peer count plus one for this node.
func (f *Federator) KnownPeers() (int, error) {
	peers, err := f.store.ListPeers()
	if err != nil {
		return 0, err
	}
	return len(peers) + 1, nil
}
