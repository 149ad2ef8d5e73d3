package token

import (
	"fmt"
	"strings"

	"github.com/bsv-blockchain/go-sdk/script"
)

const (
	// ALPLokad prefixes every ALP section.
	ALPLokad = "SLP2"

	// ALPStandard is the standard token type.
	ALPStandard byte = 0

	alpAmountSize = 6
	alpMaxAmount  = 1<<48 - 1

	// 223-byte OP_RETURN relay limit over 6-byte amounts.
	alpMaxOutputs = 29

	// MaxOpReturnSize is the relay policy limit on a null-data output script.
	MaxOpReturnSize = 223
)

// EMPPScript wraps sections into OP_RETURN OP_RESERVED <section>...
func EMPPScript(sections ...[]byte) ([]byte, error) {
	s := &script.Script{}
	*s = append(*s, script.OpRETURN, script.OpRESERVED)
	for i, sec := range sections {
		if len(sec) == 0 {
			return nil, fmt.Errorf("token: empty eMPP section %d", i)
		}
		if err := s.AppendPushData(sec); err != nil {
			return nil, fmt.Errorf("token: eMPP push: %w", err)
		}
	}
	if len(*s) > MaxOpReturnSize {
		return nil, fmt.Errorf("%w: OP_RETURN is %d bytes, limit %d", ErrTooManyOutputs, len(*s), MaxOpReturnSize)
	}
	return []byte(*s), nil
}

// ALPSendSection encodes SEND for tokenID with one amount per output.
func ALPSendSection(tokenID string, amounts []uint64) ([]byte, error) {
	id, err := decodeTokenID(tokenID)
	if err != nil {
		return nil, err
	}
	if err := checkAmounts(ProtocolALP, amounts, true); err != nil {
		return nil, err
	}

	w := alpHeader("SEND")
	w = append(w, reversed(id)...)
	w = appendALPAmounts(w, amounts)
	return w, nil
}

// MemoSection returns message as an eMPP section. Indexers skip sections
// without the ALP lokad, so a memo may not begin with it.
func MemoSection(message string) ([]byte, error) {
	if len(message) == 0 {
		return nil, ErrEmptyMessage
	}
	if len(message) > MaxMessageLen {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrMessageTooLong, len(message), MaxMessageLen)
	}
	if strings.HasPrefix(message, ALPLokad) {
		return nil, fmt.Errorf("%w: memo starts with %s", ErrMemoUnsupported, ALPLokad)
	}
	return []byte(message), nil
}

// ALPMintSection encodes MINT of amounts followed by numBatons batons.
func ALPMintSection(tokenID string, amounts []uint64, numBatons int) ([]byte, error) {
	id, err := decodeTokenID(tokenID)
	if err != nil {
		return nil, err
	}
	if err := checkAmounts(ProtocolALP, amounts, true); err != nil {
		return nil, err
	}
	if numBatons < 0 || numBatons > 255 {
		return nil, fmt.Errorf("%w: %d batons", ErrAmountOutOfRange, numBatons)
	}

	w := alpHeader("MINT")
	w = append(w, reversed(id)...)
	w = appendALPAmounts(w, amounts)
	w = append(w, byte(numBatons))
	return w, nil
}

// ALPBurnSection encodes an intentional BURN of amount.
func ALPBurnSection(tokenID string, amount uint64) ([]byte, error) {
	id, err := decodeTokenID(tokenID)
	if err != nil {
		return nil, err
	}
	if amount == 0 || amount > alpMaxAmount {
		return nil, fmt.Errorf("%w: burn %d", ErrAmountOutOfRange, amount)
	}

	w := alpHeader("BURN")
	w = append(w, reversed(id)...)
	w = appendUint48(w, amount)
	return w, nil
}

// ALPGenesisSection encodes GENESIS with the initial mint data.
func ALPGenesisSection(info GenesisInfo, amounts []uint64, numBatons int) ([]byte, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}
	if len(amounts) > alpMaxOutputs {
		return nil, fmt.Errorf("%w: %d", ErrTooManyOutputs, len(amounts))
	}
	for _, a := range amounts {
		if a > alpMaxAmount {
			return nil, fmt.Errorf("%w: %d", ErrAmountOutOfRange, a)
		}
	}
	if numBatons < 0 || numBatons > 255 {
		return nil, fmt.Errorf("%w: %d batons", ErrAmountOutOfRange, numBatons)
	}

	w := alpHeader("GENESIS")
	w = appendVarBytes(w, []byte(info.Ticker))
	w = appendVarBytes(w, []byte(info.Name))
	w = appendVarBytes(w, []byte(info.URL))
	w = appendVarBytes(w, info.Data)
	w = appendVarBytes(w, info.AuthPubKey)
	w = append(w, info.Decimals)
	w = appendALPAmounts(w, amounts)
	w = append(w, byte(numBatons))
	return w, nil
}

func alpHeader(txType string) []byte {
	w := make([]byte, 0, 64)
	w = append(w, ALPLokad...)
	w = append(w, ALPStandard)
	return appendVarBytes(w, []byte(txType))
}

func appendALPAmounts(w []byte, amounts []uint64) []byte {
	w = append(w, byte(len(amounts)))
	for _, a := range amounts {
		w = appendUint48(w, a)
	}
	return w
}

func appendUint48(w []byte, v uint64) []byte {
	for i := 0; i < alpAmountSize; i++ {
		w = append(w, byte(v>>(8*i)))
	}
	return w
}

// appendVarBytes writes a compact-size length prefix then b.
func appendVarBytes(w, b []byte) []byte {
	n := len(b)
	switch {
	case n < 0xfd:
		w = append(w, byte(n))
	case n <= 0xffff:
		w = append(w, 0xfd, byte(n), byte(n>>8))
	default:
		w = append(w, 0xfe, byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
	}
	return append(w, b...)
}

func reversed(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[len(b)-1-i] = b[i]
	}
	return out
}
