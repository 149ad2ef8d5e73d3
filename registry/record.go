// Package registry computes token supply and status from chain data and
// caches the results. The cache is a low-level primitive: it records when
// each entry was computed and leaves staleness policy to callers.
package registry

import (
	"strings"
	"time"

	"github.com/bitfsorg/libetoken-go/network"
)

// DefaultStaleWindow is how long a record is treated as current.
const DefaultStaleWindow = 5 * time.Minute

// SupplyRecord is the supply and status of one token.
type SupplyRecord struct {
	TokenID           string
	Protocol          string
	Ticker            string
	GenesisSupply     uint64
	CirculatingSupply uint64
	Decimals          uint8

	// FixedSupply is set when no mint authority was ever created: the
	// genesis emitted no baton and names no ALP authority key.
	FixedSupply bool

	IsActive    bool
	IsDeleted   bool
	LastUpdated time.Time
}

// DeriveStatus sets IsActive and IsDeleted from the supply fields.
//
// IsDeleted is a heuristic. A fixed-supply token whose circulating supply
// dropped to zero is reported deleted, but the chain cannot tell burned
// atoms apart from atoms locked in an output nobody can spend.
func DeriveStatus(r *SupplyRecord) {
	r.IsActive = r.CirculatingSupply > 0
	r.IsDeleted = r.FixedSupply && r.CirculatingSupply == 0 && r.GenesisSupply > 0
}

// IsStale reports whether r was computed more than window before now.
// A nil record is stale.
func IsStale(r *SupplyRecord, now time.Time, window time.Duration) bool {
	if r == nil {
		return true
	}
	return now.Sub(r.LastUpdated) > window
}

// GenesisSupply sums the atoms of tokenID issued by the genesis
// transaction, and reports whether it created a mint baton.
func GenesisSupply(tokenID string, genesis *network.Tx) (supply uint64, baton bool) {
	for _, out := range genesis.Outputs {
		if out.Token == nil || !strings.EqualFold(out.Token.TokenID, tokenID) {
			continue
		}
		if out.Token.IsMintBaton {
			baton = true
			continue
		}
		supply += out.Token.Atoms
	}
	return supply, baton
}

// CirculatingSupply sums atoms across the non-baton outputs of tokenID.
func CirculatingSupply(tokenID string, utxos []*network.Utxo) uint64 {
	var sum uint64
	for _, u := range utxos {
		if u.Token == nil || u.Token.IsMintBaton || !strings.EqualFold(u.Token.TokenID, tokenID) {
			continue
		}
		sum += u.Token.Atoms
	}
	return sum
}

// newer reports whether candidate should replace existing under
// last-writer-wins by LastUpdated.
func newer(candidate, existing *SupplyRecord) bool {
	return existing == nil || !candidate.LastUpdated.Before(existing.LastUpdated)
}
