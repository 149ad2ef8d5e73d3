package network

import "context"

// IndexerService is the capability interface of an eCash indexing node.
// Gateway implements it over several endpoints; HTTPIndexer over one.
type IndexerService interface {
	// GetUtxosForAddress returns every unspent output locked to address.
	GetUtxosForAddress(ctx context.Context, address string) ([]*Utxo, error)

	// GetUtxosForToken returns every unspent output carrying tokenID,
	// mint batons included.
	GetUtxosForToken(ctx context.Context, tokenID string) ([]*Utxo, error)

	// GetTransaction returns a decoded transaction.
	GetTransaction(ctx context.Context, txid string) (*Tx, error)

	// GetGenesisTransaction returns the transaction that created tokenID.
	GetGenesisTransaction(ctx context.Context, tokenID string) (*Tx, error)

	// GetTokenMeta returns genesis metadata for tokenID.
	GetTokenMeta(ctx context.Context, tokenID string) (*TokenMeta, error)

	// BroadcastTx submits a serialized transaction and returns its txid.
	BroadcastTx(ctx context.Context, rawTx []byte) (string, error)

	// GetChainTip returns the current best block.
	GetChainTip(ctx context.Context) (*ChainTip, error)
}

// TokenEntry is the token payload of an output as decoded by the indexer.
type TokenEntry struct {
	TokenID     string `json:"tokenId"`
	Protocol    string `json:"protocol"` // "ALP" or "SLP"
	Atoms       uint64 `json:"atoms,string"`
	IsMintBaton bool   `json:"isMintBaton"`
}

// Utxo is an unspent output as reported by the indexer.
type Utxo struct {
	TxID        string      `json:"txid"`
	OutIdx      uint32      `json:"outIdx"`
	Sats        uint64      `json:"sats,string"`
	Script      string      `json:"script"`      // hex locking script
	BlockHeight int32       `json:"blockHeight"` // -1 while unconfirmed
	IsCoinbase  bool        `json:"isCoinbase"`
	Token       *TokenEntry `json:"token,omitempty"`
}

// TxInput is a transaction input with the spent output's details.
type TxInput struct {
	PrevTxID string      `json:"prevTxid"`
	PrevOut  uint32      `json:"prevOutIdx"`
	Sats     uint64      `json:"sats,string"`
	Script   string      `json:"outputScript"`
	Token    *TokenEntry `json:"token,omitempty"`
}

// TxOutput is a transaction output.
type TxOutput struct {
	Sats   uint64      `json:"sats,string"`
	Script string      `json:"outputScript"`
	Token  *TokenEntry `json:"token,omitempty"`
	// SpentBy is the spending txid, empty while unspent.
	SpentBy string `json:"spentBy,omitempty"`
}

// Tx is a decoded transaction.
type Tx struct {
	TxID          string     `json:"txid"`
	Inputs        []TxInput  `json:"inputs"`
	Outputs       []TxOutput `json:"outputs"`
	BlockHeight   int32      `json:"blockHeight"` // -1 while unconfirmed
	TimeFirstSeen int64      `json:"timeFirstSeen"`
}

// Confirmed reports whether the transaction is mined.
func (t *Tx) Confirmed() bool {
	return t.BlockHeight >= 0
}

// TokenMeta is the genesis information of a token.
type TokenMeta struct {
	TokenID    string `json:"tokenId"`
	Protocol   string `json:"protocol"`
	Ticker     string `json:"ticker"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	Decimals   uint8  `json:"decimals"`
	AuthPubKey string `json:"authPubkey,omitempty"` // hex, ALP only
	// GenesisHeight is the block height of the genesis tx, -1 if unconfirmed.
	GenesisHeight int32 `json:"genesisHeight"`
}

// ChainTip identifies the best block.
type ChainTip struct {
	Hash   string `json:"tipHash"`
	Height int32  `json:"tipHeight"`
}
