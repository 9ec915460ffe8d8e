package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dias221467/Walk_Companion/internal/models"
	"github.com/Dias221467/Walk_Companion/pkg/logger"
	bolt "go.etcd.io/bbolt"
)

var walkBucket = []byte("walk_requests")

// BoltWalkStore persists walk requests as JSON values in a single bbolt
// bucket. bbolt runs one write transaction at a time, so the status check and
// the write inside Transition cannot interleave with another writer.
type BoltWalkStore struct {
	db *bolt.DB
}

// OpenBoltWalkStore opens (or creates) the database file at path.
func OpenBoltWalkStore(path string) (*BoltWalkStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(walkBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	logger.Log.WithField("path", path).Info("Bolt walk store opened")
	return &BoltWalkStore{db: db}, nil
}

func (s *BoltWalkStore) Close() error {
	return s.db.Close()
}

func (s *BoltWalkStore) Create(ctx context.Context, req *models.WalkRequest) error {
	js, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode walk request: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(walkBucket)
		key := []byte(req.ID)
		if b.Get(key) != nil {
			return ErrDuplicateID
		}
		return b.Put(key, js)
	})
}

func (s *BoltWalkStore) Get(ctx context.Context, id string) (*models.WalkRequest, error) {
	var req models.WalkRequest
	err := s.db.View(func(tx *bolt.Tx) error {
		bs := tx.Bucket(walkBucket).Get([]byte(id))
		if bs == nil {
			return ErrNotFound
		}
		return json.Unmarshal(bs, &req)
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *BoltWalkStore) Transition(ctx context.Context, id string, change models.StatusChange) (*models.WalkRequest, error) {
	var req models.WalkRequest
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(walkBucket)
		key := []byte(id)
		bs := b.Get(key)
		if bs == nil {
			return ErrNotFound
		}
		if err := json.Unmarshal(bs, &req); err != nil {
			return err
		}
		if req.Status != change.From {
			return &StatusMismatchError{ID: id, Expected: change.From, Actual: req.Status}
		}
		change.Apply(&req)
		js, err := json.Marshal(&req)
		if err != nil {
			return err
		}
		return b.Put(key, js)
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *BoltWalkStore) Find(ctx context.Context, filter models.WalkFilter) ([]models.WalkRequest, error) {
	var out []models.WalkRequest
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(walkBucket).Cursor()
		for k, bs := c.First(); k != nil; k, bs = c.Next() {
			var req models.WalkRequest
			if err := json.Unmarshal(bs, &req); err != nil {
				return fmt.Errorf("failed to decode walk request %s: %w", k, err)
			}
			if filter.Match(&req) {
				out = append(out, req)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
