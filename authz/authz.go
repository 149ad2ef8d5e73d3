// Package authz decides what the active wallet may do with a token. It is
// read-only and may be called speculatively, for example to gate a UI
// action, without side effects.
package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bitfsorg/libetoken-go/ledger"
)

// ErrProfileLookup wraps failures of the profile directory.
var ErrProfileLookup = errors.New("authz: profile lookup failed")

// CreatorStatus is the trust level behind a creator claim.
type CreatorStatus int

const (
	// NotCreator means neither rule matched.
	NotCreator CreatorStatus = iota

	// ProvenCreator means the wallet holds the token's mint baton. The claim
	// is cryptographic.
	ProvenCreator

	// ClaimedCreator means the token has fixed supply and one of the
	// wallet's off-chain profiles lists it. The claim is not verifiable on
	// chain and callers must treat it as weaker.
	ClaimedCreator
)

func (s CreatorStatus) String() string {
	switch s {
	case ProvenCreator:
		return "proven"
	case ClaimedCreator:
		return "claimed"
	}
	return "none"
}

// IsCreator reports whether either rule matched.
func (s CreatorStatus) IsCreator() bool { return s != NotCreator }

// Profile is an off-chain record owned by an address.
type Profile struct {
	Owner    string
	TokenIDs []string
}

// ProfileDirectory finds profiles by owner address.
type ProfileDirectory interface {
	FindProfilesByOwner(ctx context.Context, address string) ([]Profile, error)
}

// HasMintAuthority reports whether utxos contain a mint baton for tokenID.
// utxos must be the outputs owned by the address in question, such as a
// ledger snapshot's token outputs.
func HasMintAuthority(tokenID string, utxos []*ledger.Utxo) bool {
	for _, u := range utxos {
		if u.IsBaton() && strings.EqualFold(u.Token.TokenID, tokenID) {
			return true
		}
	}
	return false
}

// ResolveCreatorStatus applies the two creator rules in order. Baton
// possession wins. Otherwise, for a fixed-supply token, a profile owned by
// address that lists tokenID makes a weaker claim. profiles may be nil, in
// which case only the first rule applies.
func ResolveCreatorStatus(ctx context.Context, address, tokenID string, utxos []*ledger.Utxo,
	fixedSupply bool, profiles ProfileDirectory) (CreatorStatus, error) {
	if HasMintAuthority(tokenID, utxos) {
		return ProvenCreator, nil
	}
	if !fixedSupply || profiles == nil {
		return NotCreator, nil
	}

	found, err := profiles.FindProfilesByOwner(ctx, address)
	if err != nil {
		return NotCreator, fmt.Errorf("%w: %w", ErrProfileLookup, err)
	}
	for _, p := range found {
		for _, id := range p.TokenIDs {
			if strings.EqualFold(id, tokenID) {
				return ClaimedCreator, nil
			}
		}
	}
	return NotCreator, nil
}

// StaticProfiles is an in-memory ProfileDirectory.
type StaticProfiles []Profile

// FindProfilesByOwner implements ProfileDirectory.
func (s StaticProfiles) FindProfilesByOwner(_ context.Context, address string) ([]Profile, error) {
	var out []Profile
	for _, p := range s {
		if p.Owner == address {
			out = append(out, p)
		}
	}
	return out, nil
}
