/*
Package types defines the core data structures shared across fedsearch.

Types include peers, datasets, clinical records, per-request access maps,
server configuration, and the kind-classified error values used on every
package boundary. The seven error kinds map to HTTP status codes in exactly
one place (Kind.HTTPStatus), so no other package hard-codes wire codes.

Access control model:

	AccessMap: dataset name -> tier (0..4)
	Tier 0: public fields only
	Tier 4: all fields
	Absent dataset: no access

Records keep their common identifying fields (id, name, dataset, created,
updated, description) explicit; entity-specific attributes live in a field
map and are filtered by tier before serialization.
*/
package types
