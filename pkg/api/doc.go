// Package api implements the HTTP surface of a federation node.
//
// Every data route serves two kinds of callers on the same path. An
// origin client gets a JSON envelope with an aggregated status block,
// built by fanning the request out to the local backend and every
// registered peer. A peer hop, marked with the "Federation: False"
// request header, gets the raw protobuf of the local backend only and
// never triggers another fan-out, so requests cannot loop through the
// mesh.
//
// Routes:
//
//	GET  /v1/{entity}/{id}     fetch one record by id
//	POST /v1/{entity}/search   filtered, paged search
//	POST /v1/count             histogram counts over record fields
//	GET  /v1/peers             list registered peers
//	POST /v1/announce          register or refresh a peer
//	GET  /v1/datasets          local dataset catalog
//	GET  /healthz              component health
//	GET  /livez                process liveness
//	GET  /readyz               readiness
//	GET  /metrics              Prometheus metrics
//
// Request bodies are validated before any fan-out, so a malformed search
// is rejected with 400 before any peer is contacted.
package api
