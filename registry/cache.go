package registry

import (
	"strings"
	"sync"
)

// Cache stores supply records keyed by token id. Set keeps the record with
// the latest LastUpdated, so a slow sync finishing late cannot overwrite a
// fresher result. It reports whether the record was stored.
type Cache interface {
	Get(tokenID string) (*SupplyRecord, bool, error)
	Set(record *SupplyRecord) (bool, error)
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	records map[string]SupplyRecord
}

// Compile-time interface check.
var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{records: make(map[string]SupplyRecord)}
}

// Get returns a copy of the cached record.
func (c *MemoryCache) Get(tokenID string) (*SupplyRecord, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.records[cacheKey(tokenID)]
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(record *SupplyRecord) (bool, error) {
	if record == nil {
		return false, ErrNilRecord
	}
	key := cacheKey(record.TokenID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.records[key]; ok && !newer(record, &existing) {
		return false, nil
	}
	c.records[key] = *record
	return true, nil
}

func cacheKey(tokenID string) string {
	return strings.ToLower(tokenID)
}
