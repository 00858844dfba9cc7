package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/candig/fedsearch/pkg/auth"
	"github.com/candig/fedsearch/pkg/backend"
	"github.com/candig/fedsearch/pkg/events"
	"github.com/candig/fedsearch/pkg/federation"
	"github.com/candig/fedsearch/pkg/log"
	"github.com/candig/fedsearch/pkg/metrics"
	"github.com/candig/fedsearch/pkg/storage"
	"github.com/candig/fedsearch/pkg/types"
)

// Server is the HTTP API of one federation node. It serves origin clients
// (JSON envelopes) and peer hops (raw protobuf) on the same routes.
type Server struct {
	cfg      *types.Config
	store    storage.Store
	resolver *auth.Resolver
	backend  *backend.Backend
	fed      *federation.Federator
	broker   *events.Broker
	logger   zerolog.Logger
	limiters *clientLimiters
	httpSrv  *http.Server
}

// NewServer wires the access resolver, local backend and federator over
// one registry store.
func NewServer(cfg *types.Config, store storage.Store, broker *events.Broker) *Server {
	be := backend.NewBackend(store)
	s := &Server{
		cfg:      cfg,
		store:    store,
		resolver: auth.NewResolver(store, cfg.AuthMode),
		backend:  be,
		fed:      federation.NewFederator(store, be, cfg),
		broker:   broker,
		logger:   log.WithComponent("api"),
		limiters: newClientLimiters(cfg.RateLimit, cfg.RateBurst),
	}
	return s
}

// Handler builds the route table with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Federated data surface
	mux.HandleFunc("GET /v1/{entity}/{id}", s.handleGet)
	mux.HandleFunc("POST /v1/{entity}/search", s.handleSearch)
	mux.HandleFunc("POST /v1/count", s.handleCount)

	// Registry administration
	mux.HandleFunc("GET /v1/peers", s.handleListPeers)
	mux.HandleFunc("POST /v1/announce", s.handleAnnounce)
	mux.HandleFunc("GET /v1/datasets", s.handleListDatasets)

	// Operational endpoints
	mux.Handle("GET /healthz", metrics.HealthHandler())
	mux.Handle("GET /livez", metrics.LivenessHandler())
	mux.Handle("GET /readyz", metrics.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	return s.withLogging(s.withRateLimit(mux))
}

// Start begins serving and blocks until the listener fails or the server
// is stopped.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * s.cfg.PeerTimeout, // fan-out must be able to drain its timeouts
		IdleTimeout:  60 * time.Second,
	}

	metrics.RegisterComponent("api", true, "serving")
	s.logger.Info().Str("addr", s.cfg.ListenAddr).Msg("API listening")

	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return fmt.Errorf("API server failed: %w", err)
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	metrics.UpdateComponent("api", false, "shutting down")
	return s.httpSrv.Shutdown(ctx)
}
