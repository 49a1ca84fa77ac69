package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketEntries = []byte("entries")

// BoltBackend persists entries in a bbolt file with an in-memory read-through layer.
type BoltBackend struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte
}

// NewBoltBackend opens <baseDir>/<hash(serverURL)>/cache.db. Each server gets its own file.
func NewBoltBackend(baseDir, serverURL string) (*BoltBackend, error) {
	dir := baseDir
	if serverURL != "" {
		dir = filepath.Join(baseDir, hashServerURL(serverURL))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "cache.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltBackend{db: db, cache: make(map[string][]byte)}, nil
}

func hashServerURL(serverURL string) string {
	normalized := strings.TrimRight(strings.ToLower(serverURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (b *BoltBackend) Close() error {
	return b.db.Close()
}

func (b *BoltBackend) Get(key string) ([]byte, bool) {
	b.mu.RLock()
	if data, ok := b.cache[key]; ok {
		b.mu.RUnlock()
		return data, true
	}
	b.mu.RUnlock()

	var data []byte
	b.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketEntries).Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if data == nil {
		return nil, false
	}

	// Promote to memory cache
	b.mu.Lock()
	b.cache[key] = data
	b.mu.Unlock()

	return data, true
}

func (b *BoltBackend) Set(key string, data []byte, _ time.Duration) error {
	b.mu.Lock()
	b.cache[key] = data
	b.mu.Unlock()

	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntries).Put([]byte(key), data)
	})
}

func (b *BoltBackend) Delete(key string) error {
	b.mu.Lock()
	delete(b.cache, key)
	b.mu.Unlock()

	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntries).Delete([]byte(key))
	})
}

func (b *BoltBackend) DeletePrefix(prefix string) error {
	b.mu.Lock()
	for k := range b.cache {
		if strings.HasPrefix(k, prefix) {
			delete(b.cache, k)
		}
	}
	b.mu.Unlock()

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketEntries)
		keys := scanPrefix(bucket, prefix)
		for _, k := range keys {
			if err := bucket.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BoltBackend) Keys(prefix string) ([]string, error) {
	var keys []string
	err := b.db.View(func(tx *bolt.Tx) error {
		keys = scanPrefix(tx.Bucket(bucketEntries), prefix)
		return nil
	})
	return keys, err
}

// scanPrefix collects keys first; deleting while a cursor walks the bucket skips entries.
func scanPrefix(bucket *bolt.Bucket, prefix string) []string {
	var keys []string
	c := bucket.Cursor()
	for k, _ := c.Seek([]byte(prefix)); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
		keys = append(keys, string(k))
	}
	return keys
}
