/*
Package metrics provides Prometheus metrics and health reporting for
fedsearch.

Metrics are package-level collectors registered at init and exposed
through Handler() on /metrics. They cover the registry (peers, datasets,
records), the API surface (request counts and latencies by operation),
and the federation layer (outbound peer calls by status, origin requests
by validity, hops answered locally).

The Collector refreshes registry gauges from the store on a fixed
interval. Component health is tracked separately and served on /healthz
and /readyz; the registry and API server are the readiness-critical
components.
*/
package metrics
