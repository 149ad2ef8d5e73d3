// Package ledger keeps the wallet's view of its unspent outputs. It splits
// them into plain XEC outputs and token-carrying outputs, derives the
// balance breakdown and holdings, and selects inputs for new transactions.
package ledger

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/bitfsorg/libetoken-go/network"
	"github.com/bitfsorg/libetoken-go/token"
)

// DustLimit is the smallest output value relayed by eCash nodes. Every
// token output carries exactly this much XEC.
const DustLimit uint64 = 546

// Outpoint identifies a transaction output.
type Outpoint struct {
	TxID  string // display hex
	Index uint32
}

func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID, o.Index)
}

// TokenData is the token payload of an output.
type TokenData struct {
	TokenID     string
	Protocol    token.Protocol
	Atoms       uint64
	IsMintBaton bool
}

// Utxo is an unspent output owned by the wallet. Utxos are never mutated;
// a refresh replaces them.
type Utxo struct {
	Outpoint
	Sats        uint64
	Script      []byte
	BlockHeight int32 // -1 while unconfirmed
	Token       *TokenData
}

// IsToken reports whether the output carries a token payload.
func (u *Utxo) IsToken() bool { return u.Token != nil }

// IsBaton reports whether the output is a mint baton.
func (u *Utxo) IsBaton() bool { return u.Token != nil && u.Token.IsMintBaton }

// HoldsToken reports whether the output carries atoms of tokenID, batons
// excluded.
func (u *Utxo) HoldsToken(tokenID string) bool {
	return u.Token != nil && !u.Token.IsMintBaton && equalID(u.Token.TokenID, tokenID)
}

// FromIndexer converts an indexer UTXO.
func FromIndexer(in *network.Utxo) (*Utxo, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: nil", ErrInvalidUtxo)
	}
	if len(in.TxID) != 64 {
		return nil, fmt.Errorf("%w: txid %q", ErrInvalidUtxo, in.TxID)
	}
	script, err := hex.DecodeString(in.Script)
	if err != nil {
		return nil, fmt.Errorf("%w: script of %s:%d: %w", ErrInvalidUtxo, in.TxID, in.OutIdx, err)
	}

	u := &Utxo{
		Outpoint:    Outpoint{TxID: strings.ToLower(in.TxID), Index: in.OutIdx},
		Sats:        in.Sats,
		Script:      script,
		BlockHeight: in.BlockHeight,
	}
	if in.Token != nil {
		p, err := token.ParseProtocol(in.Token.Protocol)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidUtxo, u.Outpoint, err)
		}
		u.Token = &TokenData{
			TokenID:     strings.ToLower(in.Token.TokenID),
			Protocol:    p,
			Atoms:       in.Token.Atoms,
			IsMintBaton: in.Token.IsMintBaton,
		}
	}
	return u, nil
}

// FromIndexerAll converts a list of indexer UTXOs, failing on the first
// malformed entry.
func FromIndexerAll(in []*network.Utxo) ([]*Utxo, error) {
	out := make([]*Utxo, 0, len(in))
	for _, u := range in {
		c, err := FromIndexer(u)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// sortLargestFirst orders by value descending, then outpoint for a stable
// result across refreshes.
func sortLargestFirst(utxos []*Utxo, value func(*Utxo) uint64) {
	sort.SliceStable(utxos, func(i, j int) bool {
		vi, vj := value(utxos[i]), value(utxos[j])
		if vi != vj {
			return vi > vj
		}
		if utxos[i].TxID != utxos[j].TxID {
			return utxos[i].TxID < utxos[j].TxID
		}
		return utxos[i].Index < utxos[j].Index
	})
}

func equalID(a, b string) bool {
	return strings.EqualFold(a, b)
}
