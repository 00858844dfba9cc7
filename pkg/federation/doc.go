/*
Package federation fans a single inbound request out to every registered
peer, merges the responses with the local answer, and reports per-slot
communication status.

# Architecture

	┌───────────────────── FEDERATION LAYER ─────────────────────┐
	│                                                             │
	│  Inbound request                                            │
	│        │                                                    │
	│        ├── Federation: False? ──► Local(), the hop path:    │
	│        │                          raw protobuf reply        │
	│        ▼                                                    │
	│   Federate()                                                │
	│        │                                                    │
	│        ├── local dispatch ───────────────┐                  │
	│        └── callPeer × N (semaphore 10) ──┤  completion      │
	│                                          ▼  order           │
	│                                   proto.Merge into          │
	│                                   accumulator               │
	│                                          │                  │
	│                              count query? sum bucket maps   │
	│                                          │                  │
	│                                          ▼                  │
	│                                   Envelope{status,results}  │
	└─────────────────────────────────────────────────────────────┘

Each request owns its accumulator and status vector; nothing is shared
between requests and no locking is needed.

# Peer contract

Outbound peer calls preserve path and query, mirror the inbound method and
body, forward the bearer token unchanged, and set two headers: Accept
application/octet-stream (peers answer with serialized protobuf) and
Federation: False (the loop guard: a hop answers from its local backend
only, so fan-out depth is exactly one).

# Failure isolation

Per-peer failures become status-vector entries, never errors: 503 for
unreachable or timed-out peers, the peer's own status for 404/401, and 500
when a body does not parse as the declared response type. The envelope is
built only after every slot has settled; there is no partial or streaming
envelope, no retries, and no cross-peer cancellation.
*/
package federation
