/*
Package schema is the single source of truth for the clinical data model.

Each entity (patient, sample, enrollment, diagnosis, treatment, outcome) is
described by a table of (field, kind, tier) descriptors rather than a
hand-written class per entity. The descriptor tables drive three things:

  - Tier filtering: FilterTier drops attributes above the caller's tier
    before any serialization, so federation can never leak a field.
  - The wire schema: at startup the tables are compiled into runtime
    protobuf message descriptors (one response message per collection with
    a repeated google.protobuf.Struct primary field), which peers exchange
    in binary form and the federation layer merges with proto.Merge.
  - Request validation: search filter keys and count fields are checked
    against the descriptor tables.

The operation table maps symbolic operation names (getPatient,
searchSamples, runCountQuery) to their method, entity, primary JSON key and
response descriptor. Count operations are flagged explicitly in the table.

Common identifying fields (id, name, datasetId, created, updated,
description) are always visible regardless of tier.
*/
package schema
