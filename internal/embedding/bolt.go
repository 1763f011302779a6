package embedding

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var bucketVectors = []byte("vectors")

// BoltCache persists vectors in a local bbolt file. It suits the CLI, where
// repeated rank runs over the same documents should not re-embed headings.
type BoltCache struct {
	db *bbolt.DB
}

func NewBoltCache(path string) (*BoltCache, error) {
	if path == "" {
		return nil, fmt.Errorf("bolt cache path required")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketVectors)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltCache{db: db}, nil
}

func (b *BoltCache) GetMany(_ context.Context, keys []string) (map[string][]float32, error) {
	out := map[string][]float32{}
	err := b.db.View(func(tx *bbolt.Tx) error {
		bk := tx.Bucket(bucketVectors)
		for _, k := range keys {
			raw := bk.Get([]byte(k))
			if raw == nil {
				continue
			}
			// raw is only valid inside the transaction; decodeVector copies
			vec, err := decodeVector(raw)
			if err != nil {
				continue
			}
			out[k] = vec
		}
		return nil
	})
	return out, err
}

func (b *BoltCache) PutMany(_ context.Context, vecs map[string][]float32) error {
	if len(vecs) == 0 {
		return nil
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		bk := tx.Bucket(bucketVectors)
		for k, v := range vecs {
			if err := bk.Put([]byte(k), encodeVector(v)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BoltCache) Close() error {
	return b.db.Close()
}
