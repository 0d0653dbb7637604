//go:build !tinygo

package paramstore

import (
	bolt "go.etcd.io/bbolt"
)

// bucketName holds the single parameter block keyed by sequence number,
// so BoltStore.Load can cheaply find the highest-sequence entry the same
// way FlashRing compares two slots.
var bucketName = []byte("jaguar_params")

// BoltStore is a host-test-build implementation of Store backed by
// go.etcd.io/bbolt, letting the command-layer and message-layer test
// suites exercise real durable storage instead of an in-memory fake
// (§Domain Stack of SPEC_FULL.md). It keeps a short history of blocks
// rather than two slots, but preserves the same "highest valid sequence
// number wins, failed write leaves prior state intact" contract as
// FlashRing.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (creating if necessary) a bbolt database at path
// and ensures the parameter bucket exists.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func seqKey(seq uint8) []byte {
	return []byte{seq}
}

// Load returns the highest-sequence valid block, or defaults if the
// bucket is empty or holds only corrupt entries.
func (s *BoltStore) Load() (Block, error) {
	var best Block
	found := false

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		return bucket.ForEach(func(k, v []byte) error {
			blk := decodeBlock(v)
			if !blk.Valid() {
				return nil
			}
			if !found || seqNewer(blk.SequenceNum, best.SequenceNum) {
				best = blk
				found = true
			}
			return nil
		})
	})
	if err != nil {
		return Block{}, err
	}
	if !found {
		return Default(), nil
	}
	return best, nil
}

// Save writes a new entry keyed by an incremented sequence number inside
// a single bbolt transaction; a failed transaction leaves every prior
// entry (and therefore Load's result) unchanged.
func (s *BoltStore) Save(b Block) error {
	cur, err := s.Load()
	if err != nil {
		return err
	}
	b.SequenceNum = cur.SequenceNum + 1
	b.Version = CurrentVersion
	b = b.sealed()

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		buf := encodeBlock(b)
		// Keep the bucket from growing without bound across a long test
		// run: only the two most recent sequence numbers are needed to
		// reproduce FlashRing's two-slot behavior.
		var old [][]byte
		bucket.ForEach(func(k, v []byte) error {
			old = append(old, append([]byte(nil), k...))
			return nil
		})
		if len(old) >= 2 {
			for _, k := range old {
				if string(k) == string(seqKey(cur.SequenceNum)) {
					continue
				}
				if err := bucket.Delete(k); err != nil {
					return err
				}
			}
		}
		return bucket.Put(seqKey(b.SequenceNum), buf)
	})
}

// ResetToDefaults overwrites the in-memory block from the const default;
// it does not persist.
func (s *BoltStore) ResetToDefaults() Block {
	return Default()
}
