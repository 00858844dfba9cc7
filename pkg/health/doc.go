/*
Package health probes registered peers and tracks their availability.

A Checker performs one probe; PeerChecker hits a peer's /healthz endpoint,
accepts status codes in a configurable range, and folds the node's own
component report into the verdict. The Monitor runs checkers
against every registered peer on a fixed interval, applies a retry
threshold before flipping a peer to unhealthy, records the outcome on the
peer row, and publishes health transitions to the event broker.

Health state is advisory: an unhealthy peer is still a known peer and is
still queried during federation, where its failures surface as 503 slots
in the envelope status block.
*/
package health
