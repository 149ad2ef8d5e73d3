package network

import "context"

// MockIndexerService is a test double for IndexerService.
// All function fields must be set before the corresponding method is called.
type MockIndexerService struct {
	GetUtxosForAddressFn    func(ctx context.Context, address string) ([]*Utxo, error)
	GetUtxosForTokenFn      func(ctx context.Context, tokenID string) ([]*Utxo, error)
	GetTransactionFn        func(ctx context.Context, txid string) (*Tx, error)
	GetGenesisTransactionFn func(ctx context.Context, tokenID string) (*Tx, error)
	GetTokenMetaFn          func(ctx context.Context, tokenID string) (*TokenMeta, error)
	BroadcastTxFn           func(ctx context.Context, rawTx []byte) (string, error)
	GetChainTipFn           func(ctx context.Context) (*ChainTip, error)
}

func (m *MockIndexerService) GetUtxosForAddress(ctx context.Context, address string) ([]*Utxo, error) {
	return m.GetUtxosForAddressFn(ctx, address)
}
func (m *MockIndexerService) GetUtxosForToken(ctx context.Context, tokenID string) ([]*Utxo, error) {
	return m.GetUtxosForTokenFn(ctx, tokenID)
}
func (m *MockIndexerService) GetTransaction(ctx context.Context, txid string) (*Tx, error) {
	return m.GetTransactionFn(ctx, txid)
}
func (m *MockIndexerService) GetGenesisTransaction(ctx context.Context, tokenID string) (*Tx, error) {
	return m.GetGenesisTransactionFn(ctx, tokenID)
}
func (m *MockIndexerService) GetTokenMeta(ctx context.Context, tokenID string) (*TokenMeta, error) {
	return m.GetTokenMetaFn(ctx, tokenID)
}
func (m *MockIndexerService) BroadcastTx(ctx context.Context, rawTx []byte) (string, error) {
	return m.BroadcastTxFn(ctx, rawTx)
}
func (m *MockIndexerService) GetChainTip(ctx context.Context) (*ChainTip, error) {
	return m.GetChainTipFn(ctx)
}
