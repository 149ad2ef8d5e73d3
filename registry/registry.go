package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bitfsorg/libetoken-go/network"
)

// DefaultSyncConcurrency bounds parallel token syncs in SyncAll.
const DefaultSyncConcurrency = 4

// Registry syncs token supply from an indexer into a Cache.
type Registry struct {
	indexer     network.IndexerService
	cache       Cache
	meta        *MetaCache
	concurrency int
	now         func() time.Time
	log         zerolog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithCache replaces the default MemoryCache.
func WithCache(c Cache) Option {
	return func(r *Registry) { r.cache = c }
}

// WithMetaCache memoizes genesis metadata.
func WithMetaCache(m *MetaCache) Option {
	return func(r *Registry) { r.meta = m }
}

// WithConcurrency sets the SyncAll worker limit.
func WithConcurrency(n int) Option {
	return func(r *Registry) { r.concurrency = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithLogger sets the registry logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// New creates a registry reading from indexer.
func New(indexer network.IndexerService, opts ...Option) *Registry {
	r := &Registry{
		indexer:     indexer,
		cache:       NewMemoryCache(),
		concurrency: DefaultSyncConcurrency,
		now:         time.Now,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetCached returns the cached record for tokenID, if any. It never checks
// staleness.
func (r *Registry) GetCached(tokenID string) (*SupplyRecord, bool, error) {
	return r.cache.Get(tokenID)
}

// SetCached stores record unless a record with a later LastUpdated is
// already cached.
func (r *Registry) SetCached(record *SupplyRecord) (bool, error) {
	return r.cache.Set(record)
}

// SyncToken recomputes the supply record of tokenID from the genesis
// transaction, the token's live UTXOs and its metadata, then caches it.
// LastUpdated is the time the sync started.
func (r *Registry) SyncToken(ctx context.Context, tokenID string) (*SupplyRecord, error) {
	started := r.now()

	var (
		genesis *network.Tx
		utxos   []*network.Utxo
		meta    *network.TokenMeta
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		genesis, err = r.indexer.GetGenesisTransaction(gctx, tokenID)
		return err
	})
	g.Go(func() error {
		var err error
		utxos, err = r.indexer.GetUtxosForToken(gctx, tokenID)
		return err
	})
	g.Go(func() error {
		var err error
		meta, err = r.tokenMeta(gctx, tokenID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("registry: sync %s: %w", tokenID, err)
	}

	genesisSupply, baton := GenesisSupply(tokenID, genesis)
	if genesisSupply == 0 && !baton {
		return nil, fmt.Errorf("%w: %s", ErrInvalidGenesis, tokenID)
	}

	rec := &SupplyRecord{
		TokenID:           tokenID,
		Protocol:          meta.Protocol,
		Ticker:            meta.Ticker,
		GenesisSupply:     genesisSupply,
		CirculatingSupply: CirculatingSupply(tokenID, utxos),
		Decimals:          meta.Decimals,
		FixedSupply:       !baton && meta.AuthPubKey == "",
		LastUpdated:       started,
	}
	DeriveStatus(rec)

	stored, err := r.cache.Set(rec)
	if err != nil {
		return nil, err
	}
	if !stored {
		r.log.Debug().Str("token", tokenID).Msg("newer supply record already cached")
	}
	r.log.Debug().
		Str("token", tokenID).
		Uint64("circulating", rec.CirculatingSupply).
		Bool("active", rec.IsActive).
		Bool("deleted", rec.IsDeleted).
		Msg("token synced")
	return rec, nil
}

func (r *Registry) tokenMeta(ctx context.Context, tokenID string) (*network.TokenMeta, error) {
	if r.meta != nil {
		return r.meta.Get(ctx, tokenID)
	}
	return r.indexer.GetTokenMeta(ctx, tokenID)
}

// SyncResult is the outcome of one token in SyncAll.
type SyncResult struct {
	TokenID string
	Record  *SupplyRecord
	Err     error
}

// SyncAll syncs every token concurrently. One token failing does not stop
// the others; each result carries its own error and the slice follows the
// order of tokenIDs.
func (r *Registry) SyncAll(ctx context.Context, tokenIDs []string) []SyncResult {
	results := make([]SyncResult, len(tokenIDs))
	var g errgroup.Group
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}
	for i, id := range tokenIDs {
		g.Go(func() error {
			rec, err := r.SyncToken(ctx, id)
			results[i] = SyncResult{TokenID: id, Record: rec, Err: err}
			if err != nil {
				r.log.Warn().Err(err).Str("token", id).Msg("token sync failed")
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Lookup returns a record no older than window, syncing when the cached
// one is stale or missing. If the sync fails and a stale record exists,
// the stale record is returned together with the error so the caller can
// choose to show it as stale.
func (r *Registry) Lookup(ctx context.Context, tokenID string, window time.Duration) (*SupplyRecord, bool, error) {
	cached, ok, err := r.cache.Get(tokenID)
	if err != nil {
		return nil, false, err
	}
	if ok && !IsStale(cached, r.now(), window) {
		return cached, true, nil
	}

	rec, err := r.SyncToken(ctx, tokenID)
	if err != nil {
		if ok {
			return cached, false, err
		}
		return nil, false, err
	}
	return rec, true, nil
}

// Decimals returns the display decimals for each token id, from the cache
// or metadata. Unknown tokens are omitted.
func (r *Registry) Decimals(ctx context.Context, tokenIDs []string) map[string]uint8 {
	out := make(map[string]uint8, len(tokenIDs))
	var mu sync.Mutex
	var g errgroup.Group
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}
	for _, id := range tokenIDs {
		if rec, ok, err := r.cache.Get(id); err == nil && ok {
			mu.Lock()
			out[id] = rec.Decimals
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			meta, err := r.tokenMeta(ctx, id)
			if err != nil {
				return nil
			}
			mu.Lock()
			out[id] = meta.Decimals
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}
