package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/libetoken-go/network"
	"github.com/bitfsorg/libetoken-go/token"
)

const (
	testAddr  = "ecash:qptest"
	tokenA    = "aa00000000000000000000000000000000000000000000000000000000000001"
	tokenB    = "bb00000000000000000000000000000000000000000000000000000000000002"
	p2pkhTest = "76a914000000000000000000000000000000000000000088ac"
)

func txid(n int) string {
	return fmt.Sprintf("%064x", n)
}

func xecUtxo(n int, sats uint64) *Utxo {
	return &Utxo{Outpoint: Outpoint{TxID: txid(n)}, Sats: sats}
}

func tokenUtxo(n int, id string, atoms uint64) *Utxo {
	return &Utxo{
		Outpoint: Outpoint{TxID: txid(n)},
		Sats:     DustLimit,
		Token:    &TokenData{TokenID: id, Protocol: token.ProtocolALP, Atoms: atoms},
	}
}

func batonUtxo(n int, id string) *Utxo {
	return &Utxo{
		Outpoint: Outpoint{TxID: txid(n)},
		Sats:     DustLimit,
		Token:    &TokenData{TokenID: id, Protocol: token.ProtocolALP, IsMintBaton: true},
	}
}

func TestClassifyAndBalance(t *testing.T) {
	utxos := []*Utxo{
		xecUtxo(1, 10000),
		xecUtxo(2, 2500),
		tokenUtxo(3, tokenA, 100),
		batonUtxo(4, tokenA),
		tokenUtxo(5, tokenB, 7),
	}
	snap := Classify(testAddr, utxos, time.Unix(100, 0))
	assert.Len(t, snap.PureXec, 2)
	assert.Len(t, snap.Tokens, 3)

	b := ComputeBalance(snap)
	assert.Equal(t, uint64(12500), b.SpendableBalance)
	assert.Equal(t, 3*DustLimit, b.TokenDustValue)
	assert.Equal(t, b.SpendableBalance+b.TokenDustValue, b.TotalBalance)

	assert.Len(t, snap.Batons(tokenA), 1)
	assert.Empty(t, snap.Batons(tokenB))
	assert.Len(t, snap.TokenUtxos(tokenA), 1)
	assert.Equal(t, []string{tokenA, tokenB}, snap.TokenIDs())
}

func TestBalanceInvariantRandomSets(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		var utxos []*Utxo
		for j := 0; j < rng.Intn(20); j++ {
			switch rng.Intn(3) {
			case 0:
				utxos = append(utxos, xecUtxo(j, uint64(rng.Int63n(1e9))))
			case 1:
				u := tokenUtxo(j, tokenA, uint64(rng.Int63n(1e6)))
				u.Sats = uint64(rng.Int63n(5000))
				utxos = append(utxos, u)
			default:
				utxos = append(utxos, batonUtxo(j, tokenB))
			}
		}
		b := ComputeBalance(Classify(testAddr, utxos, time.Now()))
		require.Equal(t, b.TotalBalance, b.SpendableBalance+b.TokenDustValue)
	}
}

func TestHoldings(t *testing.T) {
	snap := Classify(testAddr, []*Utxo{
		tokenUtxo(1, tokenB, 5),
		tokenUtxo(2, tokenA, 100),
		tokenUtxo(3, tokenA, 23),
		batonUtxo(4, tokenA),
		xecUtxo(5, 1000),
	}, time.Now())

	h := Holdings(snap, map[string]uint8{tokenA: 2})
	require.Len(t, h, 2)
	assert.Equal(t, TokenHolding{TokenID: tokenA, Protocol: token.ProtocolALP, Atoms: 123, Decimals: 2, HasMintBaton: true}, h[0])
	assert.Equal(t, "1.23", h[0].Display())
	assert.Equal(t, tokenB, h[1].TokenID)
	assert.False(t, h[1].HasMintBaton)
	assert.Equal(t, uint8(0), h[1].Decimals)
}

func TestFromIndexer(t *testing.T) {
	u, err := FromIndexer(&network.Utxo{
		TxID: strings.ToUpper(txid(9)), OutIdx: 2, Sats: 546, Script: p2pkhTest, BlockHeight: -1,
		Token: &network.TokenEntry{TokenID: strings.ToUpper(tokenA), Protocol: "slp", Atoms: 10, IsMintBaton: true},
	})
	require.NoError(t, err)
	assert.Equal(t, txid(9), u.TxID)
	assert.Equal(t, uint32(2), u.Index)
	assert.Len(t, u.Script, 25)
	assert.Equal(t, tokenA, u.Token.TokenID)
	assert.Equal(t, token.ProtocolSLP, u.Token.Protocol)
	assert.True(t, u.IsBaton())
	assert.False(t, u.HoldsToken(tokenA))

	tests := []struct {
		name string
		in   *network.Utxo
	}{
		{"nil", nil},
		{"short txid", &network.Utxo{TxID: "ab"}},
		{"bad script", &network.Utxo{TxID: txid(1), Script: "zz"}},
		{"bad protocol", &network.Utxo{TxID: txid(1), Token: &network.TokenEntry{Protocol: "XYZ"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromIndexer(tt.in)
			assert.ErrorIs(t, err, ErrInvalidUtxo)
		})
	}
}

func TestMaxSendable(t *testing.T) {
	snap := Classify(testAddr, []*Utxo{
		xecUtxo(1, 10000),
		xecUtxo(2, 5000),
		tokenUtxo(3, tokenA, 100),
	}, time.Now())

	// 10 + 2*148 + 34 = 340 bytes at 1.2 sat/B
	max := MaxSendable(snap, 0)
	assert.Equal(t, uint64(15000-408), max)

	sel, err := SelectInputs(max, snap.PureXec, Policy{Outputs: 1})
	require.NoError(t, err)
	assert.Len(t, sel.Inputs, 2)
	assert.Zero(t, sel.Change)

	_, err = SelectInputs(max+1, snap.PureXec, Policy{Outputs: 1})
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	assert.Equal(t, uint64(15000-(340*5000+999)/1000), MaxSendable(snap, 5000))
}

func TestMaxSendable_BelowDust(t *testing.T) {
	assert.Zero(t, MaxSendable(&Snapshot{}, 0))
	assert.Zero(t, MaxSendable(Classify(testAddr, []*Utxo{tokenUtxo(1, tokenA, 5)}, time.Now()), 0))
	// 192 byte sweep costs 231 sats
	assert.Zero(t, MaxSendable(Classify(testAddr, []*Utxo{xecUtxo(1, 700)}, time.Now()), 0))
	assert.Zero(t, MaxSendable(Classify(testAddr, []*Utxo{xecUtxo(1, 100)}, time.Now()), 0))
	assert.Equal(t, DustLimit, MaxSendable(Classify(testAddr, []*Utxo{xecUtxo(1, DustLimit+231)}, time.Now()), 0))
}

func TestSelectInputs_LargestFirstWithChange(t *testing.T) {
	avail := []*Utxo{xecUtxo(1, 2000), xecUtxo(2, 10000), xecUtxo(3, 5000)}
	sel, err := SelectInputs(6000, avail, Policy{Outputs: 1})
	require.NoError(t, err)
	require.Len(t, sel.Inputs, 1)
	assert.Equal(t, uint64(10000), sel.Inputs[0].Sats)
	// 10 + 148 + 2*34 = 226 bytes at 1.2 sat/B
	assert.Equal(t, uint64(272), sel.Fee)
	assert.Equal(t, uint64(3728), sel.Change)
	assert.Equal(t, sel.Total, 6000+sel.Fee+sel.Change)
}

func TestSelectInputs_AccumulatesSeveral(t *testing.T) {
	avail := []*Utxo{xecUtxo(1, 3000), xecUtxo(2, 3000), xecUtxo(3, 3000)}
	sel, err := SelectInputs(5000, avail, Policy{Outputs: 1})
	require.NoError(t, err)
	assert.Len(t, sel.Inputs, 2)
	assert.Equal(t, uint64(6000), sel.Total)
	assert.Equal(t, sel.Total, 5000+sel.Fee+sel.Change)
}

func TestSelectInputs_DustChangeFoldsIntoFee(t *testing.T) {
	sel, err := SelectInputs(6000, []*Utxo{xecUtxo(1, 6500)}, Policy{Outputs: 1})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), sel.Change)
	assert.Equal(t, uint64(500), sel.Fee)
}

func TestSelectInputs_NeverSpendsTokenOutputs(t *testing.T) {
	big := tokenUtxo(9, tokenA, 1)
	big.Sats = 1_000_000
	baton := batonUtxo(8, tokenA)
	baton.Sats = 1_000_000

	_, err := SelectInputs(5000, []*Utxo{big, baton, xecUtxo(1, 1000)}, Policy{Outputs: 1})
	require.Error(t, err)
	var sf *ShortfallError
	require.True(t, errors.As(err, &sf))
	assert.Equal(t, uint64(1000), sf.Have)
}

func TestSelectInputs_Shortfall(t *testing.T) {
	avail := []*Utxo{xecUtxo(1, 10000), xecUtxo(2, 5000), xecUtxo(3, 2000)}
	_, err := SelectInputs(20000, avail, Policy{Outputs: 1})
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	var sf *ShortfallError
	require.True(t, errors.As(err, &sf))
	assert.Equal(t, uint64(17000), sf.Have)
	// 10 + 3*148 + 34 = 488 bytes -> 586 sat
	assert.Equal(t, uint64(20586), sf.Need)
	assert.Equal(t, uint64(3586), sf.Shortfall())
	assert.Contains(t, err.Error(), "short 3586")
}

func TestSelectInputs_FixedInputsCount(t *testing.T) {
	fixed := []*Utxo{tokenUtxo(5, tokenA, 10), tokenUtxo(6, tokenA, 10)}
	// Two token outputs of dust are funded by the two token inputs; only the
	// fee needs XEC.
	sel, err := SelectInputs(2*DustLimit, []*Utxo{xecUtxo(1, 5000)}, Policy{Outputs: 2, FixedInputs: fixed})
	require.NoError(t, err)
	assert.Len(t, sel.Inputs, 1)
	assert.Equal(t, 5000+2*DustLimit, sel.Total)
	// 10 + 3*148 + 3*34 = 556 bytes -> 668 sat
	assert.Equal(t, uint64(668), sel.Fee)
}

func TestSelectInputs_InvalidTarget(t *testing.T) {
	_, err := SelectInputs(0, []*Utxo{xecUtxo(1, 5000)}, Policy{})
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestSelectInputs_DataOnly(t *testing.T) {
	sel, err := SelectInputs(0, []*Utxo{xecUtxo(1, 5000)}, Policy{OpReturnLen: 20})
	require.NoError(t, err)
	assert.Len(t, sel.Inputs, 1)
	// 10 + 148 + 34 + 8 + 1 + 20 = 221 bytes -> 266 sat
	assert.Equal(t, uint64(266), sel.Fee)
	assert.Equal(t, uint64(5000-266), sel.Change)
}

func TestSelectInputs_TargetNearUint64Max(t *testing.T) {
	for _, target := range []uint64{math.MaxUint64, math.MaxUint64 - 200} {
		_, err := SelectInputs(target, []*Utxo{xecUtxo(1, 10_000)}, Policy{Outputs: 1})
		require.Error(t, err, "target %d", target)
		assert.ErrorIs(t, err, ErrInsufficientFunds)

		var short *ShortfallError
		require.True(t, errors.As(err, &short))
		assert.Equal(t, uint64(10_000), short.Have)
		assert.Equal(t, uint64(math.MaxUint64), short.Need)
	}
}

func TestAddSats(t *testing.T) {
	sum, ok := AddSats(1, 2)
	assert.True(t, ok)
	assert.Equal(t, uint64(3), sum)

	_, ok = AddSats(math.MaxUint64, 1)
	assert.False(t, ok)
}

func TestSelectTokenInputs(t *testing.T) {
	avail := []*Utxo{
		tokenUtxo(1, tokenA, 20),
		tokenUtxo(2, tokenA, 50),
		batonUtxo(3, tokenA),
		tokenUtxo(4, tokenB, 1000),
		tokenUtxo(5, tokenA, 30),
		xecUtxo(6, 99999),
	}

	sel, err := SelectTokenInputs(tokenA, 60, avail)
	require.NoError(t, err)
	require.Len(t, sel.Inputs, 2)
	assert.Equal(t, uint64(50), sel.Inputs[0].Token.Atoms)
	assert.Equal(t, uint64(30), sel.Inputs[1].Token.Atoms)
	assert.Equal(t, uint64(80), sel.Total)
	assert.Equal(t, uint64(20), sel.Change)
	for _, in := range sel.Inputs {
		assert.False(t, in.IsBaton())
	}

	_, err = SelectTokenInputs(tokenA, 101, avail)
	assert.ErrorIs(t, err, ErrInsufficientTokenBalance)
	var sf *ShortfallError
	require.True(t, errors.As(err, &sf))
	assert.Equal(t, uint64(100), sf.Have)
	assert.Equal(t, tokenA, sf.TokenID)

	_, err = SelectTokenInputs(tokenA, 0, avail)
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestEstimateTxSize(t *testing.T) {
	assert.Equal(t, 10+148+2*34, EstimateTxSize(1, 2, 0))
	assert.Equal(t, 10+148+34+8+1+50, EstimateTxSize(1, 1, 50))
	assert.Equal(t, 10+8+3+300, EstimateTxSize(0, 0, 300))
	assert.Equal(t, uint64(272), EstimateFee(226, 0))
	assert.Equal(t, uint64(226), EstimateFee(226, 1000))
}

func indexerWith(utxos []*network.Utxo, err error) *network.MockIndexerService {
	return &network.MockIndexerService{
		GetUtxosForAddressFn: func(context.Context, string) ([]*network.Utxo, error) {
			return utxos, err
		},
	}
}

func TestLedger_RefreshAndStaleView(t *testing.T) {
	clock := time.Unix(1000, 0)
	now := func() time.Time { return clock }

	mock := indexerWith([]*network.Utxo{
		{TxID: txid(1), Sats: 5000, Script: p2pkhTest},
		{TxID: txid(2), Sats: 546, Script: p2pkhTest, Token: &network.TokenEntry{TokenID: tokenA, Protocol: "ALP", Atoms: 10}},
	}, nil)
	l := New(mock, WithClock(now))

	_, _, err := l.Balance()
	assert.ErrorIs(t, err, ErrNoSnapshot)
	assert.Equal(t, FreshnessNone, l.View().Freshness)

	snap, err := l.Refresh(context.Background(), testAddr)
	require.NoError(t, err)
	assert.Len(t, snap.PureXec, 1)

	b, v, err := l.Balance()
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), b.SpendableBalance)
	assert.Equal(t, FreshnessLive, v.Freshness)
	assert.Equal(t, clock, v.LastRefreshed)

	clock = clock.Add(time.Minute)
	mock.GetUtxosForAddressFn = func(context.Context, string) ([]*network.Utxo, error) {
		return nil, network.ErrAllEndpointsUnavailable
	}
	_, err = l.Refresh(context.Background(), testAddr)
	assert.ErrorIs(t, err, network.ErrAllEndpointsUnavailable)

	v = l.View()
	assert.Equal(t, FreshnessStale, v.Freshness)
	assert.Equal(t, time.Unix(1000, 0), v.LastRefreshed)
	assert.ErrorIs(t, v.LastError, network.ErrAllEndpointsUnavailable)
	assert.Same(t, snap, v.Snapshot)
	assert.Equal(t, "stale", v.Freshness.String())

	clock = clock.Add(time.Minute)
	mock.GetUtxosForAddressFn = func(context.Context, string) ([]*network.Utxo, error) {
		return []*network.Utxo{{TxID: txid(3), Sats: 7000, Script: p2pkhTest}}, nil
	}
	_, err = l.Refresh(context.Background(), testAddr)
	require.NoError(t, err)
	v = l.View()
	assert.Equal(t, FreshnessLive, v.Freshness)
	assert.NoError(t, v.LastError)
}

func TestLedger_RefreshMalformedUtxo(t *testing.T) {
	l := New(indexerWith([]*network.Utxo{{TxID: "bad"}}, nil))
	_, err := l.Refresh(context.Background(), testAddr)
	assert.ErrorIs(t, err, ErrInvalidUtxo)
	assert.Nil(t, l.Snapshot())
}

func TestLedger_OlderSnapshotDoesNotOverwrite(t *testing.T) {
	l := New(indexerWith(nil, nil))
	newer := Classify(testAddr, []*Utxo{xecUtxo(1, 1)}, time.Unix(200, 0))
	older := Classify(testAddr, []*Utxo{xecUtxo(2, 2)}, time.Unix(100, 0))

	l.install(newer)
	l.install(older)
	assert.Same(t, newer, l.Snapshot())
}

func TestLedger_ConcurrentReaders(t *testing.T) {
	l := New(indexerWith([]*network.Utxo{{TxID: txid(1), Sats: 5000, Script: p2pkhTest}}, nil))
	_, err := l.Refresh(context.Background(), testAddr)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, _ = l.Balance()
		}()
		go func() {
			defer wg.Done()
			_, _ = l.Refresh(context.Background(), testAddr)
		}()
	}
	wg.Wait()
	assert.NotNil(t, l.Snapshot())
}
