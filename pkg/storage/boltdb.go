package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/candig/fedsearch/pkg/types"
)

var (
	// Bucket names
	bucketPeers    = []byte("peers")
	bucketDatasets = []byte("datasets")
	bucketAccess   = []byte("access")
	bucketRecords  = []byte("records")
)

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "fedsearch.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketPeers,
			bucketDatasets,
			bucketAccess,
			bucketRecords,
		}

		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// recordKey namespaces record keys per entity inside one bucket.
func recordKey(entity, id string) []byte {
	return []byte(entity + "/" + id)
}

// Peer operations
func (s *BoltStore) CreatePeer(peer *types.Peer) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPeers)
		data, err := json.Marshal(peer)
		if err != nil {
			return err
		}
		return b.Put([]byte(peer.ID), data)
	})
}

func (s *BoltStore) GetPeer(id string) (*types.Peer, error) {
	var peer types.Peer
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPeers)
		data := b.Get([]byte(id))
		if data == nil {
			return types.E(types.KindNotFound, "peer not found: %s", id)
		}
		return json.Unmarshal(data, &peer)
	})
	if err != nil {
		return nil, err
	}
	return &peer, nil
}

func (s *BoltStore) GetPeerByURL(url string) (*types.Peer, error) {
	var found *types.Peer
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPeers)
		return b.ForEach(func(k, v []byte) error {
			var peer types.Peer
			if err := json.Unmarshal(v, &peer); err != nil {
				return err
			}
			if peer.URL == url {
				found = &peer
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, types.E(types.KindNotFound, "peer not found: %s", url)
	}
	return found, nil
}

func (s *BoltStore) ListPeers() ([]*types.Peer, error) {
	var peers []*types.Peer
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPeers)
		return b.ForEach(func(k, v []byte) error {
			var peer types.Peer
			if err := json.Unmarshal(v, &peer); err != nil {
				return err
			}
			peers = append(peers, &peer)
			return nil
		})
	})
	return peers, err
}

func (s *BoltStore) UpdatePeer(peer *types.Peer) error {
	return s.CreatePeer(peer) // Same as create (upsert)
}

func (s *BoltStore) DeletePeer(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPeers)
		return b.Delete([]byte(id))
	})
}

// Dataset operations
func (s *BoltStore) CreateDataset(dataset *types.Dataset) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDatasets)
		data, err := json.Marshal(dataset)
		if err != nil {
			return err
		}
		return b.Put([]byte(dataset.ID), data)
	})
}

func (s *BoltStore) GetDataset(id string) (*types.Dataset, error) {
	var dataset types.Dataset
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDatasets)
		data := b.Get([]byte(id))
		if data == nil {
			return types.E(types.KindNotFound, "dataset not found: %s", id)
		}
		return json.Unmarshal(data, &dataset)
	})
	if err != nil {
		return nil, err
	}
	return &dataset, nil
}

func (s *BoltStore) GetDatasetByName(name string) (*types.Dataset, error) {
	var found *types.Dataset
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDatasets)
		return b.ForEach(func(k, v []byte) error {
			var dataset types.Dataset
			if err := json.Unmarshal(v, &dataset); err != nil {
				return err
			}
			if dataset.Name == name {
				found = &dataset
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, types.E(types.KindNotFound, "dataset not found: %s", name)
	}
	return found, nil
}

func (s *BoltStore) ListDatasets() ([]*types.Dataset, error) {
	var datasets []*types.Dataset
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDatasets)
		return b.ForEach(func(k, v []byte) error {
			var dataset types.Dataset
			if err := json.Unmarshal(v, &dataset); err != nil {
				return err
			}
			datasets = append(datasets, &dataset)
			return nil
		})
	})
	return datasets, err
}

func (s *BoltStore) DeleteDataset(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDatasets)
		return b.Delete([]byte(id))
	})
}

// Access rule operations
func (s *BoltStore) PutAccessRule(rule *types.AccessRule) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAccess)
		data, err := json.Marshal(rule)
		if err != nil {
			return err
		}
		return b.Put([]byte(rule.Key()), data)
	})
}

func (s *BoltStore) GetAccessRule(issuer, username string) (*types.AccessRule, error) {
	var rule types.AccessRule
	key := (&types.AccessRule{Issuer: issuer, Username: username}).Key()
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAccess)
		data := b.Get([]byte(key))
		if data == nil {
			return types.E(types.KindNotFound, "no access rule for %s", key)
		}
		return json.Unmarshal(data, &rule)
	})
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (s *BoltStore) ListAccessRules() ([]*types.AccessRule, error) {
	var rules []*types.AccessRule
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAccess)
		return b.ForEach(func(k, v []byte) error {
			var rule types.AccessRule
			if err := json.Unmarshal(v, &rule); err != nil {
				return err
			}
			rules = append(rules, &rule)
			return nil
		})
	})
	return rules, err
}

// Record operations
func (s *BoltStore) PutRecord(record *types.Record) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return b.Put(recordKey(record.Entity, record.ID), data)
	})
}

func (s *BoltStore) GetRecord(entity, id string) (*types.Record, error) {
	var record types.Record
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		data := b.Get(recordKey(entity, id))
		if data == nil {
			return types.E(types.KindNotFound, "%s not found: %s", entity, id)
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *BoltStore) ListRecords(entity string) ([]*types.Record, error) {
	var records []*types.Record
	prefix := []byte(entity + "/")
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketRecords).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var record types.Record
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			records = append(records, &record)
		}
		return nil
	})
	return records, err
}

func (s *BoltStore) ListRecordsByDataset(entity, datasetID string) ([]*types.Record, error) {
	records, err := s.ListRecords(entity)
	if err != nil {
		return nil, err
	}

	var filtered []*types.Record
	for _, record := range records {
		if record.DatasetID == datasetID {
			filtered = append(filtered, record)
		}
	}
	return filtered, nil
}

func (s *BoltStore) DeleteRecord(entity, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		return b.Delete(recordKey(entity, id))
	})
}
