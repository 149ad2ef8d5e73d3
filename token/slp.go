package token

import (
	"encoding/binary"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/script"
)

const (
	// SLPLokad prefixes every SLP v1 script.
	SLPLokad = "SLP\x00"

	// SLPFungible is the SLP v1 fungible token type.
	SLPFungible byte = 0x01

	slpMaxOutputs = 19
)

func slpScript(txType string, pushes ...[]byte) ([]byte, error) {
	s := &script.Script{}
	*s = append(*s, script.OpRETURN)
	all := append([][]byte{[]byte(SLPLokad), {SLPFungible}, []byte(txType)}, pushes...)
	for _, p := range all {
		if len(p) == 0 {
			// SLP requires empty fields as OP_PUSHDATA1 0x00.
			*s = append(*s, script.OpPUSHDATA1, 0x00)
			continue
		}
		if err := s.AppendPushData(p); err != nil {
			return nil, fmt.Errorf("token: SLP push: %w", err)
		}
	}
	if len(*s) > MaxOpReturnSize {
		return nil, fmt.Errorf("%w: OP_RETURN is %d bytes, limit %d", ErrTooManyOutputs, len(*s), MaxOpReturnSize)
	}
	return []byte(*s), nil
}

func u64be(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// SLPSendScript encodes an SLP v1 SEND. Token ids are pushed in display order.
func SLPSendScript(tokenID string, amounts []uint64) ([]byte, error) {
	id, err := decodeTokenID(tokenID)
	if err != nil {
		return nil, err
	}
	if err := checkAmounts(ProtocolSLP, amounts, true); err != nil {
		return nil, err
	}
	pushes := [][]byte{id}
	for _, a := range amounts {
		pushes = append(pushes, u64be(a))
	}
	return slpScript("SEND", pushes...)
}

// SLPMintScript encodes an SLP v1 MINT. batonVout 0 ends the baton.
func SLPMintScript(tokenID string, amount uint64, batonVout byte) ([]byte, error) {
	id, err := decodeTokenID(tokenID)
	if err != nil {
		return nil, err
	}
	return slpScript("MINT", id, batonPush(batonVout), u64be(amount))
}

// SLPBurnScript encodes an SLP BURN of amount.
func SLPBurnScript(tokenID string, amount uint64) ([]byte, error) {
	id, err := decodeTokenID(tokenID)
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, fmt.Errorf("%w: burn 0", ErrAmountOutOfRange)
	}
	return slpScript("BURN", id, u64be(amount))
}

// SLPGenesisScript encodes an SLP v1 GENESIS.
func SLPGenesisScript(info GenesisInfo, initialQty uint64, batonVout byte) ([]byte, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}
	return slpScript("GENESIS",
		[]byte(info.Ticker),
		[]byte(info.Name),
		[]byte(info.URL),
		info.DocHash,
		[]byte{info.Decimals},
		batonPush(batonVout),
		u64be(initialQty),
	)
}

func batonPush(vout byte) []byte {
	if vout == 0 {
		return nil
	}
	return []byte{vout}
}
