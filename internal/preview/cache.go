package preview

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const cacheKeyPrefix = "preview:"

// Cache stores previews in BadgerDB keyed by a hash of the URL.
type Cache struct {
	db     *badger.DB
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

type cachedPreview struct {
	Preview   *Preview  `json:"preview"`
	ExpiresAt time.Time `json:"expires_at"`
}

// OpenCache opens (or creates) the cache at path.
func OpenCache(path string, ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	return openCache(opts, ttl, logger)
}

// OpenCacheReadOnly opens an existing cache without taking the write lock,
// for inspection while the server runs.
func OpenCacheReadOnly(path string, logger *slog.Logger) (*Cache, error) {
	opts := badger.DefaultOptions(path).WithReadOnly(true).WithLogger(nil)
	return openCache(opts, 0, logger)
}

// NewMemoryCache returns a cache that lives only in memory.
func NewMemoryCache(ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	return openCache(opts, ttl, logger)
}

func openCache(opts badger.Options, ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open preview cache: %w", err)
	}
	return &Cache{db: db, ttl: ttl, now: time.Now, logger: logger}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func cacheKey(rawURL string) []byte {
	sum := sha256.Sum256([]byte(rawURL))
	return []byte(cacheKeyPrefix + hex.EncodeToString(sum[:]))
}

// Get returns the cached preview for rawURL. Expired and unreadable entries
// are misses.
func (c *Cache) Get(rawURL string) (*Preview, bool) {
	var entry cachedPreview
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(rawURL))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.logger.Warn("preview cache read failed", "url", rawURL, "error", err)
		}
		return nil, false
	}
	if entry.Preview == nil || !c.now().Before(entry.ExpiresAt) {
		return nil, false
	}
	return entry.Preview, true
}

// Set stores p under rawURL for the cache TTL.
func (c *Cache) Set(rawURL string, p *Preview) error {
	val, err := json.Marshal(cachedPreview{Preview: p, ExpiresAt: c.now().Add(c.ttl)})
	if err != nil {
		return fmt.Errorf("marshal preview: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(cacheKey(rawURL), val).WithTTL(c.ttl))
	})
}

// Delete drops the entry for rawURL, if any.
func (c *Cache) Delete(rawURL string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(cacheKey(rawURL))
	})
}

// Len counts stored entries, expired ones included until Badger drops them.
func (c *Cache) Len() (int, error) {
	n := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(cacheKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Each calls fn for every readable entry, expired ones included, until fn
// returns false.
func (c *Cache) Each(fn func(p *Preview, expiresAt time.Time) bool) error {
	return c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(cacheKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var entry cachedPreview
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil || entry.Preview == nil {
				c.logger.Warn("skipping unreadable preview entry", "key", string(it.Item().Key()), "error", err)
				continue
			}
			if !fn(entry.Preview, entry.ExpiresAt) {
				return nil
			}
		}
		return nil
	})
}

// RunGC reclaims value log space. Nothing to collect, or an in-memory
// cache, is not an error.
func (c *Cache) RunGC() error {
	for {
		err := c.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) ||
			errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
