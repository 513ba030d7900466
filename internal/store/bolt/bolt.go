package bolt

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"resaletracker/backend/internal/store"
)

var documentsBucket = []byte("documents")

// Store is a file-backed local cache on bbolt.
type Store struct {
	db       *bolt.DB
	capacity int
}

func New(path string, capacity int) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(documentsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, capacity: capacity}, nil
}

func (s *Store) Name() string {
	return "bolt"
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var payload []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(documentsBucket).Get([]byte(key)); v != nil {
			payload = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return payload, payload != nil, nil
}

func (s *Store) Put(ctx context.Context, key string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(documentsBucket)
		if s.capacity > 0 {
			used := 0
			if err := b.ForEach(func(_, v []byte) error {
				used += len(v)
				return nil
			}); err != nil {
				return err
			}
			if err := store.CheckQuota(key, s.capacity, used, len(b.Get([]byte(key))), payload); err != nil {
				return err
			}
		}
		return b.Put([]byte(key), payload)
	})
}
