package registry

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var bucketSupply = []byte("supply")

// BoltCache is a Cache persisted in a bbolt database, so records survive
// restarts. Callers must still check staleness on load.
type BoltCache struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Cache = (*BoltCache)(nil)

// OpenBoltCache opens or creates the database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltCache(dbPath string) (*BoltCache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("registry: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("registry: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSupply)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("registry: create bucket: %w", err)
	}
	return &BoltCache{db: db}, nil
}

// Close closes the underlying database.
func (c *BoltCache) Close() error { return c.db.Close() }

// Get implements Cache.
func (c *BoltCache) Get(tokenID string) (*SupplyRecord, bool, error) {
	var rec *SupplyRecord
	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSupply).Get([]byte(cacheKey(tokenID)))
		if data == nil {
			return nil
		}
		var r SupplyRecord
		if err := decodeGob(data, &r); err != nil {
			return fmt.Errorf("registry: decode record: %w", err)
		}
		rec = &r
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return rec, rec != nil, nil
}

// Set implements Cache. The compare and the write happen in one bbolt
// transaction.
func (c *BoltCache) Set(record *SupplyRecord) (bool, error) {
	if record == nil {
		return false, ErrNilRecord
	}
	key := []byte(cacheKey(record.TokenID))

	stored := false
	err := c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSupply)
		if data := b.Get(key); data != nil {
			var existing SupplyRecord
			if err := decodeGob(data, &existing); err == nil && !newer(record, &existing) {
				return nil
			}
		}
		data, err := encodeGob(record)
		if err != nil {
			return fmt.Errorf("registry: encode record: %w", err)
		}
		if err := b.Put(key, data); err != nil {
			return fmt.Errorf("registry: put record: %w", err)
		}
		stored = true
		return nil
	})
	return stored, err
}

// List returns every cached record.
func (c *BoltCache) List() ([]*SupplyRecord, error) {
	var out []*SupplyRecord
	err := c.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSupply).ForEach(func(_, v []byte) error {
			var r SupplyRecord
			if err := decodeGob(v, &r); err != nil {
				return fmt.Errorf("registry: decode record: %w", err)
			}
			out = append(out, &r)
			return nil
		})
	})
	return out, err
}

func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
