package types

import (
	"time"
)

// Tier levels control field-level visibility of clinical attributes.
// Tier 0 exposes public fields only; tier 4 exposes everything.
const (
	TierPublic     = 0
	TierRegistered = 1
	TierControlled = 2
	TierRestricted = 3
	TierFull       = 4
)

// AccessMap maps a dataset name to the caller's tier in that dataset.
// It is created once per request by the access resolver and read-only
// afterwards. A dataset absent from the map grants no access at all.
type AccessMap map[string]int

// Tier returns the caller's tier for a dataset and whether the dataset
// is accessible at all.
func (m AccessMap) Tier(dataset string) (int, bool) {
	t, ok := m[dataset]
	return t, ok
}

// AuthMode selects how the access resolver authenticates callers.
type AuthMode string

const (
	// AuthModeGateway expects a bearer JWT issued by an upstream identity
	// gateway; the token payload is matched against the access-map table.
	AuthModeGateway AuthMode = "gateway"

	// AuthModeNoAuth grants full tier on every local dataset. Intended for
	// development and single-institution deployments behind a trusted proxy.
	AuthModeNoAuth AuthMode = "noauth"
)

// Peer is another federation node, identified by a base URL and configured
// in the local registry. Peers are never mutated during request handling.
type Peer struct {
	ID           string            `json:"id"`
	URL          string            `json:"url"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	RegisteredAt time.Time         `json:"registered_at"`
	LastSeen     time.Time         `json:"last_seen,omitempty"`
	Healthy      bool              `json:"healthy"`
}

// Dataset is a catalog entry grouping clinical records under one access
// control boundary.
type Dataset struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Record is one clinical metadata row. Common identifying fields are kept
// explicit; entity-specific attributes live in Fields and are subject to
// tier filtering.
type Record struct {
	ID          string         `json:"id"`
	Name        string         `json:"name,omitempty"`
	DatasetID   string         `json:"dataset_id"`
	Entity      string         `json:"entity"`
	Description string         `json:"description,omitempty"`
	Created     time.Time      `json:"created"`
	Updated     time.Time      `json:"updated"`
	Fields      map[string]any `json:"fields,omitempty"`
}

// AccessRule maps one identity, as asserted by the upstream gateway, to the
// tiers it holds per dataset. Rules are loaded into the registry by offline
// admin tooling and read-only at request time.
type AccessRule struct {
	Issuer   string    `json:"issuer"`
	Username string    `json:"username"`
	Access   AccessMap `json:"access"`
}

// Key returns the registry key for the rule.
func (r *AccessRule) Key() string {
	return r.Issuer + "|" + r.Username
}
