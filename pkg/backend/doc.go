/*
Package backend answers operations from the local record store.

The backend is the LocalBackend collaborator of the federation layer: it
receives an operation, a request body or record ID, and the caller's
access map, and returns the operation's response message in serialized
protobuf form. Domain failures come back as kind-classified errors
(NotFound, Unauthorized, BadRequest); the dispatcher translates them into
status-vector slots without aborting federation.

Tier filtering happens here, before serialization: every emitted record
passes through the entity's FilterTier with the caller's tier for the
record's dataset. Search filters and count buckets operate on the filtered
form, so invisible fields can neither match nor be counted.
*/
package backend
