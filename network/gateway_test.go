package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tipService(tip *ChainTip, err error, calls *int32) *MockIndexerService {
	return &MockIndexerService{
		GetChainTipFn: func(context.Context) (*ChainTip, error) {
			if calls != nil {
				atomic.AddInt32(calls, 1)
			}
			return tip, err
		},
	}
}

func slowService() *MockIndexerService {
	return &MockIndexerService{
		GetChainTipFn: func(ctx context.Context) (*ChainTip, error) {
			<-ctx.Done()
			return nil, fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
		},
		BroadcastTxFn: func(ctx context.Context, _ []byte) (string, error) {
			<-ctx.Done()
			return "", fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
		},
	}
}

func broadcastService(txid string, err error, calls *int32) *MockIndexerService {
	return &MockIndexerService{
		BroadcastTxFn: func(context.Context, []byte) (string, error) {
			atomic.AddInt32(calls, 1)
			return txid, err
		},
	}
}

func TestNewGateway_NoEndpoints(t *testing.T) {
	_, err := NewGateway(nil)
	assert.ErrorIs(t, err, ErrNoEndpoints)
}

func TestGateway_Endpoints(t *testing.T) {
	g, err := NewGateway(HTTPEndpoints([]string{"https://a.example", "https://b.example"}, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, g.Endpoints())
}

func TestGateway_QueryFailsOverAfterTimeout(t *testing.T) {
	want := &ChainTip{Hash: "00ab", Height: 800000}
	g, err := NewGateway([]Endpoint{
		{Name: "slow", Service: slowService()},
		{Name: "good", Service: tipService(want, nil, nil)},
	}, WithQueryTimeout(20*time.Millisecond))
	require.NoError(t, err)

	got, err := g.GetChainTip(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGateway_QueryFailsOverOnMalformedResponse(t *testing.T) {
	var second int32
	want := &ChainTip{Hash: "00ab", Height: 1}
	g, err := NewGateway([]Endpoint{
		{Name: "a", Service: tipService(nil, ErrInvalidResponse, nil)},
		{Name: "b", Service: tipService(want, nil, &second)},
	})
	require.NoError(t, err)

	got, err := g.GetChainTip(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, int32(1), second)
}

func TestGateway_QueryStopsAtFirstSuccess(t *testing.T) {
	var first, second int32
	g, err := NewGateway([]Endpoint{
		{Name: "a", Service: tipService(&ChainTip{Hash: "aa"}, nil, &first)},
		{Name: "b", Service: tipService(&ChainTip{Hash: "bb"}, nil, &second)},
	})
	require.NoError(t, err)

	got, err := g.GetChainTip(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "aa", got.Hash)
	assert.Equal(t, int32(1), first)
	assert.Equal(t, int32(0), second)
}

func TestGateway_QueryAuthoritativeErrors(t *testing.T) {
	for _, sentinel := range []error{ErrNotFound, ErrBadRequest} {
		t.Run(sentinel.Error(), func(t *testing.T) {
			var second int32
			g, err := NewGateway([]Endpoint{
				{Name: "a", Service: tipService(nil, fmt.Errorf("%w: x", sentinel), nil)},
				{Name: "b", Service: tipService(&ChainTip{Hash: "bb"}, nil, &second)},
			})
			require.NoError(t, err)

			_, err = g.GetChainTip(context.Background())
			assert.ErrorIs(t, err, sentinel)
			assert.Equal(t, int32(0), second, "second endpoint must not be asked")
		})
	}
}

func TestGateway_QueryFailsOverWhenEndpointRefuses(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusForbidden, http.StatusRequestTimeout} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			refusing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
				_, _ = io.WriteString(w, `{"error":"slow down"}`)
			}))
			defer refusing.Close()
			healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"tipHash":"00bb","tipHeight":42}`)
			}))
			defer healthy.Close()

			g, err := NewGateway(HTTPEndpoints([]string{refusing.URL, healthy.URL}, nil))
			require.NoError(t, err)

			tip, err := g.GetChainTip(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "00bb", tip.Hash)
			assert.Equal(t, int32(42), tip.Height)
		})
	}
}

func TestGateway_QueryAllFail(t *testing.T) {
	g, err := NewGateway([]Endpoint{
		{Name: "a", Service: tipService(nil, ErrConnectionFailed, nil)},
		{Name: "b", Service: tipService(nil, ErrEndpointUnreachable, nil)},
	})
	require.NoError(t, err)

	_, err = g.GetChainTip(context.Background())
	assert.ErrorIs(t, err, ErrAllEndpointsUnavailable)
	assert.ErrorIs(t, err, ErrEndpointUnreachable, "last error is wrapped")
	assert.True(t, IsTransient(err))
	assert.Error(t, g.CheckConnection(context.Background()))
}

func TestGateway_QueryCancelledParent(t *testing.T) {
	var calls int32
	g, err := NewGateway([]Endpoint{{Name: "a", Service: tipService(&ChainTip{Hash: "aa"}, nil, &calls)}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.GetChainTip(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), calls)
}

func TestGateway_QueryDelegatesArguments(t *testing.T) {
	mock := &MockIndexerService{
		GetUtxosForAddressFn: func(_ context.Context, a string) ([]*Utxo, error) {
			return []*Utxo{{TxID: a}}, nil
		},
		GetUtxosForTokenFn: func(_ context.Context, id string) ([]*Utxo, error) {
			return []*Utxo{{TxID: id}}, nil
		},
		GetTransactionFn: func(_ context.Context, id string) (*Tx, error) {
			return &Tx{TxID: id}, nil
		},
		GetGenesisTransactionFn: func(_ context.Context, id string) (*Tx, error) {
			return &Tx{TxID: "genesis-" + id}, nil
		},
		GetTokenMetaFn: func(_ context.Context, id string) (*TokenMeta, error) {
			return &TokenMeta{TokenID: id}, nil
		},
	}
	g, err := NewGateway([]Endpoint{{Name: "m", Service: mock}})
	require.NoError(t, err)
	ctx := context.Background()

	u, err := g.GetUtxosForAddress(ctx, "ecash:q1")
	require.NoError(t, err)
	assert.Equal(t, "ecash:q1", u[0].TxID)

	u, err = g.GetUtxosForToken(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "tok", u[0].TxID)

	tx, err := g.GetTransaction(ctx, "ab")
	require.NoError(t, err)
	assert.Equal(t, "ab", tx.TxID)

	tx, err = g.GetGenesisTransaction(ctx, "cd")
	require.NoError(t, err)
	assert.Equal(t, "genesis-cd", tx.TxID)

	meta, err := g.GetTokenMeta(ctx, "ef")
	require.NoError(t, err)
	assert.Equal(t, "ef", meta.TokenID)
}

func TestGateway_BroadcastFailsOverWhenUnreachable(t *testing.T) {
	var first, second int32
	g, err := NewGateway([]Endpoint{
		{Name: "a", Service: broadcastService("", fmt.Errorf("%w: dial", ErrEndpointUnreachable), &first)},
		{Name: "b", Service: broadcastService("ff", nil, &second)},
	})
	require.NoError(t, err)

	txid, err := g.BroadcastTx(context.Background(), []byte{1})
	require.NoError(t, err)
	assert.Equal(t, "ff", txid)
	assert.Equal(t, int32(1), first)
	assert.Equal(t, int32(1), second)
}

func TestGateway_BroadcastDoesNotFailOver(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"rejected", &RejectError{Status: 400, Message: "bad-txns-inputs-missingorspent"}},
		{"connection dropped", ErrConnectionFailed},
		{"timeout", ErrTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var second int32
			var first int32
			g, err := NewGateway([]Endpoint{
				{Name: "a", Service: broadcastService("", tt.err, &first)},
				{Name: "b", Service: broadcastService("ff", nil, &second)},
			})
			require.NoError(t, err)

			_, err = g.BroadcastTx(context.Background(), []byte{1})
			assert.True(t, errors.Is(err, tt.err))
			assert.Equal(t, int32(0), second)
		})
	}
}

func TestGateway_BroadcastTimeoutIsNotFailover(t *testing.T) {
	var second int32
	g, err := NewGateway([]Endpoint{
		{Name: "slow", Service: slowService()},
		{Name: "b", Service: broadcastService("ff", nil, &second)},
	}, WithBroadcastTimeout(20*time.Millisecond))
	require.NoError(t, err)

	_, err = g.BroadcastTx(context.Background(), []byte{1})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, int32(0), second)
}

func TestGateway_BroadcastAllUnreachable(t *testing.T) {
	var calls int32
	unreachable := broadcastService("", ErrEndpointUnreachable, &calls)
	g, err := NewGateway([]Endpoint{{Name: "a", Service: unreachable}, {Name: "b", Service: unreachable}})
	require.NoError(t, err)

	_, err = g.BroadcastTx(context.Background(), []byte{1})
	assert.ErrorIs(t, err, ErrAllEndpointsUnavailable)
	assert.Equal(t, int32(2), calls)
}

func TestGateway_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	g, err := NewGateway([]Endpoint{
		{Name: "a", Service: tipService(nil, ErrConnectionFailed, nil)},
		{Name: "b", Service: tipService(&ChainTip{Hash: "bb"}, nil, nil)},
	}, WithMetrics(m))
	require.NoError(t, err)

	_, err = g.GetChainTip(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1.0, counterValue(t, reg, "etoken_gateway_requests_total", "endpoint", "a", "outcome", outcomeError))
	assert.Equal(t, 1.0, counterValue(t, reg, "etoken_gateway_requests_total", "endpoint", "b", "outcome", outcomeOK))
	assert.Equal(t, 1.0, counterValue(t, reg, "etoken_gateway_failovers_total", "op", "chain_tip"))
	assert.Equal(t, 0.0, counterValue(t, reg, "etoken_gateway_exhausted_total", "op", "chain_tip"))
}

// counterValue sums the counter samples of name whose labels match pairs.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, pairs ...string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, pairs) {
				total += m.GetCounter().GetValue()
			}
		}
	}
	return total
}

func labelsMatch(m *dto.Metric, pairs []string) bool {
	for i := 0; i+1 < len(pairs); i += 2 {
		found := false
		for _, lp := range m.GetLabel() {
			if lp.GetName() == pairs[i] && lp.GetValue() == pairs[i+1] {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, outcomeOK, outcomeOf(nil))
	assert.Equal(t, outcomeNotFound, outcomeOf(ErrNotFound))
	assert.Equal(t, outcomeRejected, outcomeOf(&RejectError{Status: 400}))
	assert.Equal(t, outcomeRejected, outcomeOf(ErrBadRequest))
	assert.Equal(t, outcomeUnreachable, outcomeOf(ErrEndpointUnreachable))
	assert.Equal(t, outcomeTimeout, outcomeOf(context.DeadlineExceeded))
	assert.Equal(t, outcomeError, outcomeOf(errors.New("x")))
}
