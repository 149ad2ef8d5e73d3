package tx

import (
	"encoding/hex"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/bitfsorg/libetoken-go/ledger"
)

// assemble serializes an unsigned transaction spending inputs in order and
// paying outputs in order.
func assemble(inputs []*ledger.Utxo, outputs []Output) ([]byte, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: no inputs", ErrScriptBuild)
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("%w: no outputs", ErrScriptBuild)
	}

	sdkTx := transaction.NewTransaction()
	for i, u := range inputs {
		hash, err := outpointHash(u.TxID)
		if err != nil {
			return nil, fmt.Errorf("%w: input %d: %w", ErrScriptBuild, i, err)
		}
		sdkTx.AddInput(&transaction.TransactionInput{
			SourceTXID:       hash,
			SourceTxOutIndex: u.Index,
			SequenceNumber:   transaction.DefaultSequenceNumber,
		})
	}
	for _, o := range outputs {
		sdkTx.Outputs = append(sdkTx.Outputs, &transaction.TransactionOutput{
			Satoshis:      o.Sats,
			LockingScript: script.NewFromBytes(o.Script),
		})
	}
	return sdkTx.Bytes(), nil
}

// outpointHash converts a display-order txid into the internal byte order.
func outpointHash(txid string) (*chainhash.Hash, error) {
	b, err := hex.DecodeString(txid)
	if err != nil {
		return nil, err
	}
	if len(b) != chainhash.HashSize {
		return nil, fmt.Errorf("txid is %d bytes", len(b))
	}
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return chainhash.NewHash(b)
}
