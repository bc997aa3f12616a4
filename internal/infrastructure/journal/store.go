package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Store keeps reconciliation findings in a BoltDB file, keyed by time so a
// cursor walks them in order.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

// Open initializes the BoltDB file and ensures the bucket exists.
func Open(path string, bucket string) (*Store, error) {
	if bucket == "" {
		bucket = "drift"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:     db,
		bucket: []byte(bucket),
	}, nil
}

// Append stores an entry.
func (s *Store) Append(entry Entry) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	entry.normalize()

	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put(buildKey(entry), payload)
	})
}

// Recent returns up to limit entries newest first. A non-empty userID keeps
// only that user's entries.
func (s *Store) Recent(userID string, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	if limit <= 0 {
		limit = 50
	}

	entries := []Entry{}
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, v := c.Last(); k != nil && len(entries) < limit; k, v = c.Prev() {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				continue
			}
			if userID != "" && entry.UserID != userID {
				continue
			}
			entries = append(entries, entry)
		}
		return nil
	})
	return entries, err
}

// Size returns the number of stored entries.
func (s *Store) Size() (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(s.bucket).Stats().KeyN
		return nil
	})
	return count, err
}

// Cleanup removes entries older than the provided timestamp and reports how
// many were dropped.
func (s *Store) Cleanup(olderThan time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		// deleting under a cursor invalidates Next, so always restart at the front
		for k, v := c.First(); k != nil; k, v = c.First() {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err == nil && !entry.Timestamp.Before(olderThan) {
				// keys are time ordered
				return nil
			}
			if err := c.Delete(); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

// buildKey orders entries by time; the id suffix keeps same-instant entries apart.
func buildKey(e Entry) []byte {
	return []byte(fmt.Sprintf("%020d-%s", e.Timestamp.UnixNano(), e.ID))
}

// Close closes the Bolt database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
