package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"fermata/types"
)

var bucketDownloads = []byte("downloads")

// BoltStore persists downloads in a BoltDB file, one nested bucket per
// user with JSON-encoded records. It satisfies the same Store contract as
// MemoryStore; Bolt's transactions provide the critical sections.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if needed) a BoltDB-backed store at path
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDownloads)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) userBucket(tx *bolt.Tx, userID string, create bool) (*bolt.Bucket, error) {
	root := tx.Bucket(bucketDownloads)
	if create {
		return root.CreateBucketIfNotExists([]byte(userID))
	}
	return root.Bucket([]byte(userID)), nil
}

// readAll decodes every record in a user bucket. UserID carries a json:"-"
// tag, so it is restored from the bucket key ownership here.
func (s *BoltStore) readAll(b *bolt.Bucket, userID string) ([]*types.Download, error) {
	if b == nil {
		return nil, nil
	}
	var out []*types.Download
	err := b.ForEach(func(_, v []byte) error {
		var d types.Download
		if err := json.Unmarshal(v, &d); err != nil {
			return err
		}
		d.UserID = userID
		out = append(out, &d)
		return nil
	})
	return out, err
}

// Insert adds a new download unless an active one exists for the same song
func (s *BoltStore) Insert(userID string, d *types.Download) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := s.userBucket(tx, userID, true)
		if err != nil {
			return err
		}

		all, err := s.readAll(b, userID)
		if err != nil {
			return err
		}
		if existing := findActive(all, d.SongID); existing != nil {
			return &ConflictError{Existing: existing}
		}

		data, err := json.Marshal(d)
		if err != nil {
			return err
		}
		return b.Put([]byte(d.ID), data)
	})
}

// List returns the user's downloads, most recent first. A record that no
// longer decodes yields an empty list rather than a partial one.
func (s *BoltStore) List(userID string) []*types.Download {
	var out []*types.Download
	err := s.db.View(func(tx *bolt.Tx) error {
		b, _ := s.userBucket(tx, userID, false)
		all, err := s.readAll(b, userID)
		if err != nil {
			return err
		}
		out = all
		return nil
	})
	if err != nil {
		log.Printf("Failed to read downloads for user %s: %v", userID, err)
	}
	sortNewestFirst(out)
	return out
}

// Get returns a single download
func (s *BoltStore) Get(userID, id string) (*types.Download, bool) {
	var found *types.Download
	s.db.View(func(tx *bolt.Tx) error {
		b, _ := s.userBucket(tx, userID, false)
		if b == nil {
			return nil
		}
		v := b.Get([]byte(id))
		if v == nil {
			return nil
		}
		var d types.Download
		if err := json.Unmarshal(v, &d); err != nil {
			return err
		}
		d.UserID = userID
		found = &d
		return nil
	})
	return found, found != nil
}

// Update mutates a download inside a write transaction; the existence
// check and the write cannot be torn apart by a concurrent delete
func (s *BoltStore) Update(userID, id string, mutate func(*types.Download)) bool {
	updated := false
	s.db.Update(func(tx *bolt.Tx) error {
		b, _ := s.userBucket(tx, userID, false)
		if b == nil {
			return nil
		}
		v := b.Get([]byte(id))
		if v == nil {
			return nil
		}
		var d types.Download
		if err := json.Unmarshal(v, &d); err != nil {
			return err
		}
		d.UserID = userID
		mutate(&d)
		data, err := json.Marshal(&d)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(id), data); err != nil {
			return err
		}
		updated = true
		return nil
	})
	return updated
}

// Delete removes a download and reports whether it existed
func (s *BoltStore) Delete(userID, id string) bool {
	deleted := false
	s.db.Update(func(tx *bolt.Tx) error {
		b, _ := s.userBucket(tx, userID, false)
		if b == nil {
			return nil
		}
		if b.Get([]byte(id)) == nil {
			return nil
		}
		if err := b.Delete([]byte(id)); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	return deleted
}

// Close closes the underlying database
func (s *BoltStore) Close() error {
	return s.db.Close()
}
