package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"

	"github.com/bitfsorg/libetoken-go/network"
)

// DefaultMetaLifetime bounds how long genesis metadata is kept. The data
// never changes on chain; the bound only caps memory.
const DefaultMetaLifetime = 24 * time.Hour

// MetaCache memoizes token genesis metadata (ticker, decimals, authority
// key) in a bigcache keyed by token id.
type MetaCache struct {
	indexer network.IndexerService
	cache   *bigcache.BigCache
}

// NewMetaCache creates a metadata cache in front of indexer.
func NewMetaCache(indexer network.IndexerService, lifetime time.Duration) (*MetaCache, error) {
	if lifetime <= 0 {
		lifetime = DefaultMetaLifetime
	}
	cfg := bigcache.DefaultConfig(lifetime)
	cfg.Shards = 64
	cfg.MaxEntriesInWindow = 10_000
	cfg.MaxEntrySize = 512
	cfg.Verbose = false

	c, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("registry: create meta cache: %w", err)
	}
	return &MetaCache{indexer: indexer, cache: c}, nil
}

// Get returns cached metadata or fetches it.
func (m *MetaCache) Get(ctx context.Context, tokenID string) (*network.TokenMeta, error) {
	key := cacheKey(tokenID)
	if data, err := m.cache.Get(key); err == nil {
		var meta network.TokenMeta
		if err := json.Unmarshal(data, &meta); err == nil {
			return &meta, nil
		}
		_ = m.cache.Delete(key)
	} else if !errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, fmt.Errorf("registry: meta cache: %w", err)
	}

	meta, err := m.indexer.GetTokenMeta(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(meta); err == nil {
		_ = m.cache.Set(key, data)
	}
	return meta, nil
}

// Len is the number of cached entries.
func (m *MetaCache) Len() int { return m.cache.Len() }

// Close releases the cache.
func (m *MetaCache) Close() error { return m.cache.Close() }
