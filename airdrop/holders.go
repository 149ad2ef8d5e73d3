package airdrop

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bitfsorg/libetoken-go/ledger"
	"github.com/bitfsorg/libetoken-go/network"
	"github.com/bitfsorg/libetoken-go/wallet"
)

// maxConcurrentFetches bounds parallel token UTXO queries in FetchHolders.
const maxConcurrentFetches = 4

// Holder is an address and the atoms of the reference token it holds.
type Holder struct {
	Address string
	Atoms   uint64
}

// HolderOptions filters the holder list.
type HolderOptions struct {
	// Network renders owner scripts as cashaddr.
	Network *wallet.NetworkConfig

	// Exclude lists addresses to drop, typically the sender's own.
	Exclude []string

	// MinAtoms drops holders below this balance.
	MinAtoms uint64
}

// Holders aggregates token outputs by owning address. Mint batons and
// outputs whose script is not a standard address are skipped. The result
// is sorted by balance descending, then address.
func Holders(tokenUtxos []*ledger.Utxo, opts HolderOptions) []Holder {
	excluded := make(map[string]bool, len(opts.Exclude))
	for _, a := range opts.Exclude {
		excluded[a] = true
	}

	balances := make(map[string]uint64)
	for _, u := range tokenUtxos {
		if u.Token == nil || u.Token.IsMintBaton || u.Token.Atoms == 0 {
			continue
		}
		addr, ok := wallet.AddressForScript(u.Script, opts.Network)
		if !ok || excluded[addr] {
			continue
		}
		balances[addr] += u.Token.Atoms
	}

	holders := make([]Holder, 0, len(balances))
	for addr, atoms := range balances {
		if atoms >= opts.MinAtoms {
			holders = append(holders, Holder{Address: addr, Atoms: atoms})
		}
	}
	sort.Slice(holders, func(i, j int) bool {
		if holders[i].Atoms != holders[j].Atoms {
			return holders[i].Atoms > holders[j].Atoms
		}
		return holders[i].Address < holders[j].Address
	})
	return holders
}

// FetchHolders queries the token UTXOs of each reference token in
// parallel and returns the combined holder list. A holder of several of the
// tokens is listed once with the summed atoms.
func FetchHolders(ctx context.Context, indexer network.IndexerService, tokenIDs []string, opts HolderOptions) ([]Holder, error) {
	var (
		mu  sync.Mutex
		all []*ledger.Utxo
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for _, id := range tokenIDs {
		g.Go(func() error {
			raw, err := indexer.GetUtxosForToken(gctx, id)
			if err != nil {
				return err
			}
			utxos, err := ledger.FromIndexerAll(raw)
			if err != nil {
				return err
			}
			mu.Lock()
			all = append(all, utxos...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	holders := Holders(all, opts)
	if len(holders) == 0 {
		return nil, ErrNoHolders
	}
	return holders, nil
}

// Recipients turns holders into pro-rata recipients weighted by atoms.
func Recipients(holders []Holder) []Recipient {
	out := make([]Recipient, len(holders))
	for i, h := range holders {
		out[i] = Recipient{Address: h.Address, Weight: h.Atoms}
	}
	return out
}
