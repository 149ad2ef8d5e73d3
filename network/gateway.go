package network

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Compile-time interface check.
var _ IndexerService = (*Gateway)(nil)

// Default per-call timeouts.
const (
	DefaultQueryTimeout     = 10 * time.Second
	DefaultBroadcastTimeout = 5 * time.Second
)

// Endpoint is one indexer in the gateway's priority list.
type Endpoint struct {
	Name    string
	Service IndexerService
}

// HTTPEndpoints builds endpoints for urls in the given order.
func HTTPEndpoints(urls []string, client *http.Client) []Endpoint {
	eps := make([]Endpoint, len(urls))
	for i, u := range urls {
		eps[i] = Endpoint{Name: u, Service: NewHTTPIndexer(u, client)}
	}
	return eps
}

// Gateway presents one IndexerService over an ordered list of endpoints.
// Queries fail over on transport errors, timeouts, refusals such as rate
// limiting, and malformed responses;
// broadcasts fail over only when the endpoint was unreachable. The order is
// fixed and never adapted. Nothing is cached.
type Gateway struct {
	endpoints        []Endpoint
	queryTimeout     time.Duration
	broadcastTimeout time.Duration
	metrics          *Metrics
	log              zerolog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithQueryTimeout sets the per-endpoint deadline for queries.
func WithQueryTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.queryTimeout = d }
}

// WithBroadcastTimeout sets the per-endpoint deadline for broadcasts.
func WithBroadcastTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.broadcastTimeout = d }
}

// WithMetrics attaches request metrics.
func WithMetrics(m *Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithLogger sets the gateway logger.
func WithLogger(l zerolog.Logger) Option {
	return func(g *Gateway) { g.log = l }
}

// NewGateway creates a gateway over endpoints, tried in order.
func NewGateway(endpoints []Endpoint, opts ...Option) (*Gateway, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	g := &Gateway{
		endpoints:        append([]Endpoint(nil), endpoints...),
		queryTimeout:     DefaultQueryTimeout,
		broadcastTimeout: DefaultBroadcastTimeout,
		log:              zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Endpoints returns the endpoint names in priority order.
func (g *Gateway) Endpoints() []string {
	names := make([]string, len(g.endpoints))
	for i, ep := range g.endpoints {
		names[i] = ep.Name
	}
	return names
}

// query runs fn against each endpoint in order until one answers.
// A not-found or bad-request answer is authoritative and ends the search.
func query[T any](ctx context.Context, g *Gateway, op string, fn func(context.Context, IndexerService) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for i, ep := range g.endpoints {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		if i > 0 {
			g.metrics.failover(op)
		}

		callCtx, cancel := context.WithTimeout(ctx, g.queryTimeout)
		start := time.Now()
		v, err := fn(callCtx, ep.Service)
		cancel()
		g.metrics.observe(ep.Name, op, outcomeOf(err), time.Since(start))

		if err == nil {
			return v, nil
		}
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrBadRequest) {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		g.log.Warn().Err(err).Str("endpoint", ep.Name).Str("op", op).Msg("indexer query failed, trying next endpoint")
		lastErr = err
	}

	g.metrics.allFailed(op)
	return zero, fmt.Errorf("%w: %s: %w", ErrAllEndpointsUnavailable, op, lastErr)
}

// GetUtxosForAddress implements IndexerService.
func (g *Gateway) GetUtxosForAddress(ctx context.Context, address string) ([]*Utxo, error) {
	return query(ctx, g, "utxos_address", func(ctx context.Context, s IndexerService) ([]*Utxo, error) {
		return s.GetUtxosForAddress(ctx, address)
	})
}

// GetUtxosForToken implements IndexerService.
func (g *Gateway) GetUtxosForToken(ctx context.Context, tokenID string) ([]*Utxo, error) {
	return query(ctx, g, "utxos_token", func(ctx context.Context, s IndexerService) ([]*Utxo, error) {
		return s.GetUtxosForToken(ctx, tokenID)
	})
}

// GetTransaction implements IndexerService.
func (g *Gateway) GetTransaction(ctx context.Context, txid string) (*Tx, error) {
	return query(ctx, g, "tx", func(ctx context.Context, s IndexerService) (*Tx, error) {
		return s.GetTransaction(ctx, txid)
	})
}

// GetGenesisTransaction implements IndexerService.
func (g *Gateway) GetGenesisTransaction(ctx context.Context, tokenID string) (*Tx, error) {
	return query(ctx, g, "genesis_tx", func(ctx context.Context, s IndexerService) (*Tx, error) {
		return s.GetGenesisTransaction(ctx, tokenID)
	})
}

// GetTokenMeta implements IndexerService.
func (g *Gateway) GetTokenMeta(ctx context.Context, tokenID string) (*TokenMeta, error) {
	return query(ctx, g, "token_meta", func(ctx context.Context, s IndexerService) (*TokenMeta, error) {
		return s.GetTokenMeta(ctx, tokenID)
	})
}

// GetChainTip implements IndexerService.
func (g *Gateway) GetChainTip(ctx context.Context) (*ChainTip, error) {
	return query(ctx, g, "chain_tip", func(ctx context.Context, s IndexerService) (*ChainTip, error) {
		return s.GetChainTip(ctx)
	})
}

// CheckConnection reports whether any endpoint answers a chain tip query.
func (g *Gateway) CheckConnection(ctx context.Context) error {
	_, err := g.GetChainTip(ctx)
	return err
}

// BroadcastTx implements IndexerService. Only an unreachable endpoint moves
// the broadcast to the next one; any response, including a rejection or a
// timeout after the request went out, is returned as is.
func (g *Gateway) BroadcastTx(ctx context.Context, rawTx []byte) (string, error) {
	const op = "broadcast"
	var lastErr error
	for i, ep := range g.endpoints {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if i > 0 {
			g.metrics.failover(op)
		}

		callCtx, cancel := context.WithTimeout(ctx, g.broadcastTimeout)
		start := time.Now()
		txid, err := ep.Service.BroadcastTx(callCtx, rawTx)
		cancel()
		g.metrics.observe(ep.Name, op, outcomeOf(err), time.Since(start))

		if err == nil {
			g.log.Info().Str("endpoint", ep.Name).Str("txid", txid).Msg("transaction broadcast")
			return txid, nil
		}
		if !errors.Is(err, ErrEndpointUnreachable) {
			return "", err
		}

		g.log.Warn().Err(err).Str("endpoint", ep.Name).Msg("broadcast endpoint unreachable, trying next endpoint")
		lastErr = err
	}

	g.metrics.allFailed(op)
	return "", fmt.Errorf("%w: %s: %w", ErrAllEndpointsUnavailable, op, lastErr)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, ErrNotFound):
		return outcomeNotFound
	case errors.Is(err, ErrBroadcastRejected), errors.Is(err, ErrBadRequest):
		return outcomeRejected
	case errors.Is(err, ErrEndpointUnreachable):
		return outcomeUnreachable
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return outcomeTimeout
	}
	return outcomeError
}
