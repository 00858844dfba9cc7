/*
Package storage persists the federation registry and the local record store.

The registry holds three kinds of rows: peers (the other federation nodes),
datasets (the access-control boundaries of the clinical catalog), and
access rules mapping (issuer, username) identities to per-dataset tiers.
Clinical records live in a fourth bucket, keyed by entity and record ID.

The Store interface is implemented by BoltStore on top of BoltDB, with one
bucket per row kind and JSON-encoded values. BoltDB gives single-file
durability with read transactions that never block request handling; the
registry is effectively read-only at request time, since writes arrive only
through offline admin tooling and the announce endpoint.

Usage:

	store, err := storage.NewBoltStore("/var/lib/fedsearch")
	if err != nil {
		...
	}
	defer store.Close()

	peers, err := store.ListPeers()
*/
package storage
