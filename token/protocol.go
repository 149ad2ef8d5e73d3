// Package token encodes the OP_RETURN scripts of the two eCash fungible token
// protocols: ALP (sections inside an eMPP envelope) and SLP v1.
package token

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Protocol identifies a token protocol.
type Protocol int

const (
	ProtocolALP Protocol = iota
	ProtocolSLP
)

// String implements fmt.Stringer.
func (p Protocol) String() string {
	switch p {
	case ProtocolALP:
		return "ALP"
	case ProtocolSLP:
		return "SLP"
	}
	return fmt.Sprintf("Protocol(%d)", int(p))
}

// ParseProtocol accepts "ALP" or "SLP" in any case.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ALP":
		return ProtocolALP, nil
	case "SLP":
		return ProtocolSLP, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownProtocol, s)
}

// MaxAmount is the largest encodable amount for the protocol.
func (p Protocol) MaxAmount() uint64 {
	if p == ProtocolALP {
		return alpMaxAmount
	}
	return ^uint64(0)
}

// MaxOutputs is the number of token outputs a single SEND can address.
func (p Protocol) MaxOutputs() int {
	if p == ProtocolALP {
		return alpMaxOutputs
	}
	return slpMaxOutputs
}

// GenesisInfo describes a new token.
type GenesisInfo struct {
	Ticker     string
	Name       string
	URL        string
	Data       []byte // ALP free-form data
	DocHash    []byte // SLP document hash, empty or 32 bytes
	AuthPubKey []byte // ALP authority public key, empty or 33 bytes
	Decimals   uint8
}

// Validate checks fields common to both protocols.
func (g GenesisInfo) Validate() error {
	if g.Decimals > 9 {
		return fmt.Errorf("%w: decimals %d > 9", ErrInvalidGenesis, g.Decimals)
	}
	if len(g.DocHash) != 0 && len(g.DocHash) != 32 {
		return fmt.Errorf("%w: document hash must be 32 bytes", ErrInvalidGenesis)
	}
	if len(g.AuthPubKey) != 0 && len(g.AuthPubKey) != 33 {
		return fmt.Errorf("%w: auth pubkey must be 33 bytes", ErrInvalidGenesis)
	}
	return nil
}

// decodeTokenID returns the 32 bytes of a display-order hex token id.
func decodeTokenID(tokenID string) ([]byte, error) {
	b, err := hex.DecodeString(tokenID)
	if err != nil || len(b) != 32 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTokenID, tokenID)
	}
	return b, nil
}

// ValidateTokenID checks tokenID is 64 hex characters.
func ValidateTokenID(tokenID string) error {
	_, err := decodeTokenID(tokenID)
	return err
}

func checkAmounts(p Protocol, amounts []uint64, allowZero bool) error {
	if len(amounts) == 0 {
		return ErrNoAmounts
	}
	if len(amounts) > p.MaxOutputs() {
		return fmt.Errorf("%w: %d > %d", ErrTooManyOutputs, len(amounts), p.MaxOutputs())
	}
	for i, a := range amounts {
		if a > p.MaxAmount() {
			return fmt.Errorf("%w: amount[%d]=%d exceeds %s max", ErrAmountOutOfRange, i, a, p)
		}
		if a == 0 && !allowZero {
			return fmt.Errorf("%w: amount[%d] is zero", ErrAmountOutOfRange, i)
		}
	}
	return nil
}

// SendScript builds a SEND whose amounts[i] goes to output i+1.
func SendScript(p Protocol, tokenID string, amounts []uint64) ([]byte, error) {
	switch p {
	case ProtocolALP:
		sec, err := ALPSendSection(tokenID, amounts)
		if err != nil {
			return nil, err
		}
		return EMPPScript(sec)
	case ProtocolSLP:
		return SLPSendScript(tokenID, amounts)
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownProtocol, p)
}

// SendScriptWithMemo is SendScript with message appended as a second eMPP
// section. An empty message yields plain SendScript. Only ALP can carry a
// memo; the memo counts toward the OP_RETURN size limit.
func SendScriptWithMemo(p Protocol, tokenID string, amounts []uint64, message string) ([]byte, error) {
	if message == "" {
		return SendScript(p, tokenID, amounts)
	}
	if p != ProtocolALP {
		return nil, fmt.Errorf("%w: %s", ErrMemoUnsupported, p)
	}
	sec, err := ALPSendSection(tokenID, amounts)
	if err != nil {
		return nil, err
	}
	memo, err := MemoSection(message)
	if err != nil {
		return nil, err
	}
	return EMPPScript(sec, memo)
}

// MintScript builds a MINT of amount to output 1, re-emitting the baton to
// output 2.
func MintScript(p Protocol, tokenID string, amount uint64) ([]byte, error) {
	switch p {
	case ProtocolALP:
		sec, err := ALPMintSection(tokenID, []uint64{amount}, 1)
		if err != nil {
			return nil, err
		}
		return EMPPScript(sec)
	case ProtocolSLP:
		return SLPMintScript(tokenID, amount, 2)
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownProtocol, p)
}

// BurnScript builds an explicit burn of amount. When change is nonzero the
// remaining atoms are sent to output 1.
//
// ALP expresses this as a BURN section followed by a SEND section. SLP has no
// combined form: with change it emits a SEND of the change, leaving the
// difference between inputs and outputs burned.
func BurnScript(p Protocol, tokenID string, amount, change uint64) ([]byte, error) {
	switch p {
	case ProtocolALP:
		burn, err := ALPBurnSection(tokenID, amount)
		if err != nil {
			return nil, err
		}
		if change == 0 {
			return EMPPScript(burn)
		}
		send, err := ALPSendSection(tokenID, []uint64{change})
		if err != nil {
			return nil, err
		}
		return EMPPScript(burn, send)
	case ProtocolSLP:
		if change == 0 {
			return SLPBurnScript(tokenID, amount)
		}
		return SLPSendScript(tokenID, []uint64{change})
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownProtocol, p)
}

// GenesisScript builds a GENESIS issuing initialQty to output 1 and, when
// withBaton is set, a mint baton to output 2.
func GenesisScript(p Protocol, info GenesisInfo, initialQty uint64, withBaton bool) ([]byte, error) {
	switch p {
	case ProtocolALP:
		var amounts []uint64
		if initialQty > 0 {
			amounts = []uint64{initialQty}
		}
		numBatons := 0
		if withBaton {
			numBatons = 1
		}
		sec, err := ALPGenesisSection(info, amounts, numBatons)
		if err != nil {
			return nil, err
		}
		return EMPPScript(sec)
	case ProtocolSLP:
		batonVout := byte(0)
		if withBaton {
			batonVout = 2
		}
		return SLPGenesisScript(info, initialQty, batonVout)
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownProtocol, p)
}
