package network

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Compile-time interface check.
var _ IndexerService = (*HTTPIndexer)(nil)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 1024

// HTTPIndexer is a JSON-over-HTTP client for a single indexer endpoint.
type HTTPIndexer struct {
	baseURL string
	client  *http.Client
}

// NewHTTPIndexer creates a client for baseURL. A nil client gets a pooled
// default with a 30 second backstop timeout; per-call deadlines come from ctx.
func NewHTTPIndexer(baseURL string, client *http.Client) *HTTPIndexer {
	if client == nil {
		client = &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		}
	}
	return &HTTPIndexer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// URL returns the endpoint base URL.
func (c *HTTPIndexer) URL() string {
	return c.baseURL
}

type utxosResponse struct {
	Utxos []*Utxo `json:"utxos"`
}

type broadcastRequest struct {
	RawTx string `json:"rawTx"`
}

type broadcastResponse struct {
	TxID string `json:"txid"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// GetUtxosForAddress implements IndexerService.
func (c *HTTPIndexer) GetUtxosForAddress(ctx context.Context, address string) ([]*Utxo, error) {
	var resp utxosResponse
	if err := c.get(ctx, "/address/"+url.PathEscape(address)+"/utxos", &resp); err != nil {
		return nil, err
	}
	return resp.Utxos, nil
}

// GetUtxosForToken implements IndexerService.
func (c *HTTPIndexer) GetUtxosForToken(ctx context.Context, tokenID string) ([]*Utxo, error) {
	var resp utxosResponse
	if err := c.get(ctx, "/token/"+url.PathEscape(tokenID)+"/utxos", &resp); err != nil {
		return nil, err
	}
	return resp.Utxos, nil
}

// GetTransaction implements IndexerService.
func (c *HTTPIndexer) GetTransaction(ctx context.Context, txid string) (*Tx, error) {
	var tx Tx
	if err := c.get(ctx, "/tx/"+url.PathEscape(txid), &tx); err != nil {
		return nil, err
	}
	if tx.TxID != "" && !strings.EqualFold(tx.TxID, txid) {
		return nil, fmt.Errorf("%w: asked for tx %s, got %s", ErrInvalidResponse, txid, tx.TxID)
	}
	return &tx, nil
}

// GetGenesisTransaction implements IndexerService. A token id is the txid
// of its genesis transaction.
func (c *HTTPIndexer) GetGenesisTransaction(ctx context.Context, tokenID string) (*Tx, error) {
	return c.GetTransaction(ctx, tokenID)
}

// GetTokenMeta implements IndexerService.
func (c *HTTPIndexer) GetTokenMeta(ctx context.Context, tokenID string) (*TokenMeta, error) {
	var meta TokenMeta
	if err := c.get(ctx, "/token/"+url.PathEscape(tokenID), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// GetChainTip implements IndexerService.
func (c *HTTPIndexer) GetChainTip(ctx context.Context) (*ChainTip, error) {
	var tip ChainTip
	if err := c.get(ctx, "/blockchain-info", &tip); err != nil {
		return nil, err
	}
	if tip.Hash == "" {
		return nil, fmt.Errorf("%w: empty tip hash", ErrInvalidResponse)
	}
	return &tip, nil
}

// BroadcastTx implements IndexerService.
func (c *HTTPIndexer) BroadcastTx(ctx context.Context, rawTx []byte) (string, error) {
	body, err := json.Marshal(broadcastRequest{RawTx: hex.EncodeToString(rawTx)})
	if err != nil {
		return "", fmt.Errorf("network: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/broadcast-tx", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("network: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity {
		return "", &RejectError{Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: HTTP %d: %s", ErrInvalidResponse, resp.StatusCode, readErrorMessage(resp.Body))
	}

	var out broadcastResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", ErrInvalidResponse, err)
	}
	if out.TxID == "" {
		return "", fmt.Errorf("%w: missing txid", ErrInvalidResponse)
	}
	return out.TxID, nil
}

// get performs a GET and decodes the JSON body into result.
func (c *HTTPIndexer) get(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("network: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: HTTP %d: %s", ErrBadRequest, resp.StatusCode, readErrorMessage(resp.Body))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: HTTP %d: %s", ErrEndpointRefused, resp.StatusCode, readErrorMessage(resp.Body))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: HTTP %d: %s", ErrInvalidResponse, resp.StatusCode, readErrorMessage(resp.Body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return fmt.Errorf("%w: decode response: %w", ErrInvalidResponse, err)
	}
	return nil
}

func readErrorMessage(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var e errorResponse
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}

// classifyTransportError separates failures where the endpoint never saw the
// request (dial or DNS) from ones where it may have.
func classifyTransportError(err error) error {
	var dnsErr *net.DNSError
	var opErr *net.OpError
	if errors.As(err, &dnsErr) || (errors.As(err, &opErr) && opErr.Op == "dial") {
		return fmt.Errorf("%w: %w", ErrEndpointUnreachable, err)
	}
	if isTimeout(err) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
