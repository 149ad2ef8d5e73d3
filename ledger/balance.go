package ledger

import (
	"sort"
	"time"

	"github.com/bitfsorg/libetoken-go/token"
)

// Snapshot is the classified UTXO set of one address at one moment.
type Snapshot struct {
	Address string
	TakenAt time.Time

	// PureXec holds outputs without a token payload.
	PureXec []*Utxo

	// Tokens holds every token-carrying output, mint batons included.
	Tokens []*Utxo
}

// Classify partitions utxos by presence of a token payload.
func Classify(address string, utxos []*Utxo, at time.Time) *Snapshot {
	s := &Snapshot{Address: address, TakenAt: at}
	for _, u := range utxos {
		if u.IsToken() {
			s.Tokens = append(s.Tokens, u)
		} else {
			s.PureXec = append(s.PureXec, u)
		}
	}
	return s
}

// Batons returns the mint baton outputs held for tokenID.
func (s *Snapshot) Batons(tokenID string) []*Utxo {
	var out []*Utxo
	for _, u := range s.Tokens {
		if u.IsBaton() && equalID(u.Token.TokenID, tokenID) {
			out = append(out, u)
		}
	}
	return out
}

// TokenUtxos returns the non-baton outputs holding tokenID.
func (s *Snapshot) TokenUtxos(tokenID string) []*Utxo {
	var out []*Utxo
	for _, u := range s.Tokens {
		if u.HoldsToken(tokenID) {
			out = append(out, u)
		}
	}
	return out
}

// BalanceBreakdown splits the wallet's XEC into what may be spent freely
// and what is locked as dust on token outputs.
// TotalBalance == SpendableBalance + TokenDustValue always holds.
type BalanceBreakdown struct {
	SpendableBalance uint64
	TotalBalance     uint64
	TokenDustValue   uint64
	PureXecUtxos     []*Utxo
	TokenUtxos       []*Utxo
}

// ComputeBalance derives the breakdown of s. XEC on token outputs is never
// spendable: spending it would destroy the token.
func ComputeBalance(s *Snapshot) BalanceBreakdown {
	b := BalanceBreakdown{
		PureXecUtxos: s.PureXec,
		TokenUtxos:   s.Tokens,
	}
	for _, u := range s.PureXec {
		b.SpendableBalance += u.Sats
	}
	for _, u := range s.Tokens {
		b.TokenDustValue += u.Sats
	}
	b.TotalBalance = b.SpendableBalance + b.TokenDustValue
	return b
}

// MaxSendable is the largest single XEC payment s can fund: every pure XEC
// output swept into one destination, less the fee. Below DustLimit it is
// zero, as no relayable output could carry it.
func MaxSendable(s *Snapshot, feeRate uint64) uint64 {
	if len(s.PureXec) == 0 {
		return 0
	}
	var total uint64
	for _, u := range s.PureXec {
		total = satAdd(total, u.Sats)
	}
	fee := EstimateFee(EstimateTxSize(len(s.PureXec), 1, 0), feeRate)
	if total < fee || total-fee < DustLimit {
		return 0
	}
	return total - fee
}

// TokenHolding is the wallet's position in one token.
type TokenHolding struct {
	TokenID      string
	Protocol     token.Protocol
	Atoms        uint64
	Decimals     uint8
	HasMintBaton bool
}

// Display formats Atoms with the token's decimals.
func (h TokenHolding) Display() string {
	return token.FormatAmount(h.Atoms, h.Decimals)
}

// Holdings aggregates s.Tokens per token id. decimals supplies each token's
// display precision; unknown tokens get zero. The result is sorted by id.
func Holdings(s *Snapshot, decimals map[string]uint8) []TokenHolding {
	byID := make(map[string]*TokenHolding)
	for _, u := range s.Tokens {
		h, ok := byID[u.Token.TokenID]
		if !ok {
			h = &TokenHolding{
				TokenID:  u.Token.TokenID,
				Protocol: u.Token.Protocol,
				Decimals: decimals[u.Token.TokenID],
			}
			byID[u.Token.TokenID] = h
		}
		if u.Token.IsMintBaton {
			h.HasMintBaton = true
			continue
		}
		h.Atoms += u.Token.Atoms
	}

	out := make([]TokenHolding, 0, len(byID))
	for _, h := range byID {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenID < out[j].TokenID })
	return out
}

// TokenIDs lists the distinct token ids in s, sorted.
func (s *Snapshot) TokenIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, u := range s.Tokens {
		if !seen[u.Token.TokenID] {
			seen[u.Token.TokenID] = true
			ids = append(ids, u.Token.TokenID)
		}
	}
	sort.Strings(ids)
	return ids
}
