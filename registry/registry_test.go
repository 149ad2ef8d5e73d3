package registry

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/libetoken-go/network"
)

const (
	fixedID    = "aa00000000000000000000000000000000000000000000000000000000000001"
	variableID = "bb00000000000000000000000000000000000000000000000000000000000002"
	brokenID   = "cc00000000000000000000000000000000000000000000000000000000000003"
)

func entry(id string, atoms uint64, baton bool) *network.TokenEntry {
	return &network.TokenEntry{TokenID: id, Protocol: "ALP", Atoms: atoms, IsMintBaton: baton}
}

// fakeChain serves a fixed-supply token issued 1000 atoms, now fully
// burned, and a variable-supply token with a baton and 70 atoms live.
func fakeChain() *network.MockIndexerService {
	return &network.MockIndexerService{
		GetGenesisTransactionFn: func(_ context.Context, id string) (*network.Tx, error) {
			switch id {
			case fixedID:
				return &network.Tx{TxID: id, Outputs: []network.TxOutput{
					{Script: "6a"},
					{Sats: 546, Token: entry(id, 600, false)},
					{Sats: 546, Token: entry(id, 400, false)},
				}}, nil
			case variableID:
				return &network.Tx{TxID: id, Outputs: []network.TxOutput{
					{Script: "6a"},
					{Sats: 546, Token: entry(id, 100, false)},
					{Sats: 546, Token: entry(id, 0, true)},
				}}, nil
			}
			return nil, network.ErrNotFound
		},
		GetUtxosForTokenFn: func(_ context.Context, id string) ([]*network.Utxo, error) {
			switch id {
			case fixedID:
				return nil, nil
			case variableID:
				return []*network.Utxo{
					{Sats: 546, Token: entry(id, 50, false)},
					{Sats: 546, Token: entry(id, 20, false)},
					{Sats: 546, Token: entry(id, 0, true)},
				}, nil
			}
			return nil, network.ErrAllEndpointsUnavailable
		},
		GetTokenMetaFn: func(_ context.Context, id string) (*network.TokenMeta, error) {
			return &network.TokenMeta{TokenID: id, Protocol: "ALP", Ticker: "TK", Decimals: 2}, nil
		},
	}
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name              string
		rec               SupplyRecord
		active, isDeleted bool
	}{
		{"live fixed", SupplyRecord{FixedSupply: true, GenesisSupply: 10, CirculatingSupply: 10}, true, false},
		{"burned fixed", SupplyRecord{FixedSupply: true, GenesisSupply: 10}, false, true},
		{"burned variable", SupplyRecord{GenesisSupply: 10}, false, false},
		{"fixed with empty genesis", SupplyRecord{FixedSupply: true}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.rec
			DeriveStatus(&r)
			assert.Equal(t, tt.active, r.IsActive)
			assert.Equal(t, tt.isDeleted, r.IsDeleted)
		})
	}
}

func TestIsStale(t *testing.T) {
	now := time.Unix(10_000, 0)
	assert.True(t, IsStale(nil, now, time.Minute))
	assert.False(t, IsStale(&SupplyRecord{LastUpdated: now.Add(-time.Minute)}, now, DefaultStaleWindow))
	assert.True(t, IsStale(&SupplyRecord{LastUpdated: now.Add(-6 * time.Minute)}, now, DefaultStaleWindow))
}

func TestSyncToken_BurnedFixedSupplyIsDeleted(t *testing.T) {
	r := New(fakeChain())
	rec, err := r.SyncToken(context.Background(), fixedID)
	require.NoError(t, err)

	assert.Equal(t, uint64(1000), rec.GenesisSupply)
	assert.Equal(t, uint64(0), rec.CirculatingSupply)
	assert.True(t, rec.FixedSupply)
	assert.False(t, rec.IsActive)
	assert.True(t, rec.IsDeleted)
	assert.Equal(t, uint8(2), rec.Decimals)
}

func TestSyncToken_VariableSupply(t *testing.T) {
	clock := time.Unix(500, 0)
	r := New(fakeChain(), WithClock(func() time.Time { return clock }))
	rec, err := r.SyncToken(context.Background(), variableID)
	require.NoError(t, err)

	assert.Equal(t, uint64(100), rec.GenesisSupply)
	assert.Equal(t, uint64(70), rec.CirculatingSupply, "baton carries no supply")
	assert.False(t, rec.FixedSupply)
	assert.True(t, rec.IsActive)
	assert.False(t, rec.IsDeleted)
	assert.Equal(t, clock, rec.LastUpdated)

	cached, ok, err := r.GetCached(variableID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, cached)
}

func TestSyncToken_AuthPubKeyMeansVariable(t *testing.T) {
	chain := fakeChain()
	chain.GetTokenMetaFn = func(_ context.Context, id string) (*network.TokenMeta, error) {
		return &network.TokenMeta{TokenID: id, AuthPubKey: "02ab"}, nil
	}
	rec, err := New(chain).SyncToken(context.Background(), fixedID)
	require.NoError(t, err)
	assert.False(t, rec.FixedSupply)
	assert.False(t, rec.IsDeleted)
}

func TestSyncToken_GenesisWithoutToken(t *testing.T) {
	chain := fakeChain()
	chain.GetGenesisTransactionFn = func(_ context.Context, id string) (*network.Tx, error) {
		return &network.Tx{TxID: id, Outputs: []network.TxOutput{{Sats: 1000}}}, nil
	}
	_, err := New(chain).SyncToken(context.Background(), fixedID)
	assert.ErrorIs(t, err, ErrInvalidGenesis)
}

func TestSyncAll_IsolatesFailures(t *testing.T) {
	r := New(fakeChain(), WithConcurrency(2))
	results := r.SyncAll(context.Background(), []string{fixedID, brokenID, variableID})
	require.Len(t, results, 3)

	assert.Equal(t, fixedID, results[0].TokenID)
	assert.NoError(t, results[0].Err)
	assert.True(t, results[0].Record.IsDeleted)

	assert.Equal(t, brokenID, results[1].TokenID)
	assert.Error(t, results[1].Err)
	assert.Nil(t, results[1].Record)

	assert.NoError(t, results[2].Err)
	assert.Equal(t, uint64(70), results[2].Record.CirculatingSupply)
}

func TestLookup(t *testing.T) {
	clock := time.Unix(1000, 0)
	chain := fakeChain()
	var syncs int32
	inner := chain.GetUtxosForTokenFn
	chain.GetUtxosForTokenFn = func(ctx context.Context, id string) ([]*network.Utxo, error) {
		atomic.AddInt32(&syncs, 1)
		return inner(ctx, id)
	}
	r := New(chain, WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	rec, fresh, err := r.Lookup(ctx, variableID, DefaultStaleWindow)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, int32(1), syncs)

	clock = clock.Add(time.Minute)
	_, _, err = r.Lookup(ctx, variableID, DefaultStaleWindow)
	require.NoError(t, err)
	assert.Equal(t, int32(1), syncs, "served from cache")

	clock = clock.Add(10 * time.Minute)
	chain.GetUtxosForTokenFn = func(context.Context, string) ([]*network.Utxo, error) {
		return nil, network.ErrAllEndpointsUnavailable
	}
	stale, fresh, err := r.Lookup(ctx, variableID, DefaultStaleWindow)
	assert.ErrorIs(t, err, network.ErrAllEndpointsUnavailable)
	assert.False(t, fresh)
	require.NotNil(t, stale)
	assert.Equal(t, rec.LastUpdated, stale.LastUpdated)

	_, _, err = r.Lookup(ctx, brokenID, DefaultStaleWindow)
	assert.Error(t, err)
}

func TestDecimals(t *testing.T) {
	chain := fakeChain()
	chain.GetTokenMetaFn = func(_ context.Context, id string) (*network.TokenMeta, error) {
		if id == brokenID {
			return nil, network.ErrNotFound
		}
		return &network.TokenMeta{TokenID: id, Decimals: 8}, nil
	}
	r := New(chain)
	_, err := r.SetCached(&SupplyRecord{TokenID: fixedID, Decimals: 3})
	require.NoError(t, err)

	got := r.Decimals(context.Background(), []string{fixedID, variableID, brokenID})
	assert.Equal(t, map[string]uint8{fixedID: 3, variableID: 8}, got)
}

// Cached and fetched ids interleave so cache hits are recorded while
// metadata fetches are still writing results.
func TestDecimals_MixedCachedAndFetched(t *testing.T) {
	chain := fakeChain()
	chain.GetTokenMetaFn = func(_ context.Context, id string) (*network.TokenMeta, error) {
		time.Sleep(time.Millisecond)
		return &network.TokenMeta{TokenID: id, Decimals: 8}, nil
	}
	r := New(chain, WithConcurrency(16))

	ids := make([]string, 200)
	want := make(map[string]uint8, len(ids))
	for i := range ids {
		ids[i] = fmt.Sprintf("%064x", i+1)
		if i%2 == 1 {
			_, err := r.SetCached(&SupplyRecord{TokenID: ids[i], Decimals: 2})
			require.NoError(t, err)
			want[ids[i]] = 2
			continue
		}
		want[ids[i]] = 8
	}

	got := r.Decimals(context.Background(), ids)
	assert.Equal(t, want, got)
}

func testCaches(t *testing.T) map[string]Cache {
	bolt, err := OpenBoltCache(filepath.Join(t.TempDir(), "registry", "supply.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bolt.Close() })
	return map[string]Cache{"memory": NewMemoryCache(), "bolt": bolt}
}

func TestCache_LastWriterWinsByTimestamp(t *testing.T) {
	for name, c := range testCaches(t) {
		t.Run(name, func(t *testing.T) {
			fresh := &SupplyRecord{TokenID: fixedID, CirculatingSupply: 5, LastUpdated: time.Unix(200, 0).UTC()}
			slow := &SupplyRecord{TokenID: fixedID, CirculatingSupply: 9, LastUpdated: time.Unix(100, 0).UTC()}

			_, ok, err := c.Get(fixedID)
			require.NoError(t, err)
			assert.False(t, ok)

			stored, err := c.Set(fresh)
			require.NoError(t, err)
			assert.True(t, stored)

			stored, err = c.Set(slow)
			require.NoError(t, err)
			assert.False(t, stored)

			got, ok, err := c.Get(fixedID)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, uint64(5), got.CirculatingSupply)

			later := &SupplyRecord{TokenID: fixedID, CirculatingSupply: 1, LastUpdated: time.Unix(300, 0).UTC()}
			stored, err = c.Set(later)
			require.NoError(t, err)
			assert.True(t, stored)

			_, err = c.Set(nil)
			assert.ErrorIs(t, err, ErrNilRecord)
		})
	}
}

func TestMemoryCache_ConcurrentWriters(t *testing.T) {
	c := NewMemoryCache()
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Set(&SupplyRecord{TokenID: fixedID, CirculatingSupply: uint64(i), LastUpdated: time.Unix(int64(i), 0)})
		}()
	}
	wg.Wait()

	got, ok, err := c.Get(fixedID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(50), got.CirculatingSupply)
}

func TestBoltCache_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "supply.db")
	c, err := OpenBoltCache(path)
	require.NoError(t, err)
	rec := &SupplyRecord{TokenID: variableID, Ticker: "TK", GenesisSupply: 100, CirculatingSupply: 70, IsActive: true, LastUpdated: time.Unix(42, 0).UTC()}
	_, err = c.Set(rec)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	c, err = OpenBoltCache(path)
	require.NoError(t, err)
	defer c.Close()

	got, ok, err := c.Get(variableID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec.Ticker, got.Ticker)
	assert.Equal(t, rec.CirculatingSupply, got.CirculatingSupply)
	assert.True(t, rec.LastUpdated.Equal(got.LastUpdated))

	all, err := c.List()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMetaCache_FetchesOnce(t *testing.T) {
	var calls int32
	chain := &network.MockIndexerService{
		GetTokenMetaFn: func(_ context.Context, id string) (*network.TokenMeta, error) {
			atomic.AddInt32(&calls, 1)
			if id == brokenID {
				return nil, network.ErrNotFound
			}
			return &network.TokenMeta{TokenID: id, Ticker: "TK", Decimals: 4}, nil
		},
	}
	m, err := NewMetaCache(chain, time.Hour)
	require.NoError(t, err)
	defer m.Close()

	for i := 0; i < 3; i++ {
		meta, err := m.Get(context.Background(), fixedID)
		require.NoError(t, err)
		assert.Equal(t, uint8(4), meta.Decimals)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, m.Len())

	_, err = m.Get(context.Background(), brokenID)
	assert.True(t, errors.Is(err, network.ErrNotFound))
	assert.Equal(t, 1, m.Len(), "errors are not cached")
}

func TestRegistry_UsesMetaCache(t *testing.T) {
	chain := fakeChain()
	var calls int32
	chain.GetTokenMetaFn = func(_ context.Context, id string) (*network.TokenMeta, error) {
		atomic.AddInt32(&calls, 1)
		return &network.TokenMeta{TokenID: id, Decimals: 1}, nil
	}
	m, err := NewMetaCache(chain, 0)
	require.NoError(t, err)
	defer m.Close()

	r := New(chain, WithMetaCache(m))
	for i := 0; i < 3; i++ {
		_, err := r.SyncToken(context.Background(), variableID)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
