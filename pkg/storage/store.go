package storage

import (
	"github.com/candig/fedsearch/pkg/types"
)

// Store defines the interface for registry and record storage.
// Implemented by the BoltDB-backed store. The registry is read-only during
// request handling; writes happen through offline admin tooling and the
// announce endpoint.
type Store interface {
	// Peers
	CreatePeer(peer *types.Peer) error
	GetPeer(id string) (*types.Peer, error)
	GetPeerByURL(url string) (*types.Peer, error)
	ListPeers() ([]*types.Peer, error)
	UpdatePeer(peer *types.Peer) error
	DeletePeer(id string) error

	// Datasets
	CreateDataset(dataset *types.Dataset) error
	GetDataset(id string) (*types.Dataset, error)
	GetDatasetByName(name string) (*types.Dataset, error)
	ListDatasets() ([]*types.Dataset, error)
	DeleteDataset(id string) error

	// Access rules
	PutAccessRule(rule *types.AccessRule) error
	GetAccessRule(issuer, username string) (*types.AccessRule, error)
	ListAccessRules() ([]*types.AccessRule, error)

	// Records
	PutRecord(record *types.Record) error
	GetRecord(entity, id string) (*types.Record, error)
	ListRecords(entity string) ([]*types.Record, error)
	ListRecordsByDataset(entity, datasetID string) ([]*types.Record, error)
	DeleteRecord(entity, id string) error

	// Utility
	Close() error
}
