// Package engine wires the wallet components into one explicit session.
// A Session replaces global wallet state: it is created locked, Unlock
// derives the active key from the vault's seed, and Lock discards the key
// together with every snapshot read under it.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bitfsorg/libetoken-go/airdrop"
	"github.com/bitfsorg/libetoken-go/authz"
	"github.com/bitfsorg/libetoken-go/ledger"
	"github.com/bitfsorg/libetoken-go/network"
	"github.com/bitfsorg/libetoken-go/registry"
	"github.com/bitfsorg/libetoken-go/token"
	"github.com/bitfsorg/libetoken-go/tx"
	"github.com/bitfsorg/libetoken-go/wallet"
)

// Session is one wallet session over an indexer.
type Session struct {
	indexer  network.IndexerService
	vault    wallet.SeedVault
	profiles authz.ProfileDirectory
	net      *wallet.NetworkConfig
	keys     *wallet.KeyRing
	registry *registry.Registry
	builder  *tx.Builder
	stale    time.Duration

	txOpts []tx.Option
	log    zerolog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	ledger *ledger.Ledger

	closers []func() error
}

// Option configures a Session.
type Option func(*Session)

// WithNetwork selects the wallet network.
func WithNetwork(n *wallet.NetworkConfig) Option {
	return func(s *Session) { s.net = n }
}

// WithProfiles sets the off-chain profile collaborator used for
// fixed-supply creator claims.
func WithProfiles(p authz.ProfileDirectory) Option {
	return func(s *Session) { s.profiles = p }
}

// WithRegistry replaces the default in-memory token registry.
func WithRegistry(r *registry.Registry) Option {
	return func(s *Session) { s.registry = r }
}

// WithStaleWindow sets how old a cached supply record may be before
// TokenSupply resyncs it.
func WithStaleWindow(d time.Duration) Option {
	return func(s *Session) { s.stale = d }
}

// WithTxOptions passes options to the transaction builder.
func WithTxOptions(opts ...tx.Option) Option {
	return func(s *Session) { s.txOpts = append(s.txOpts, opts...) }
}

// WithLogger sets the session logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithClock overrides the time source of the session's ledger.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithCloser registers fn to run on Close.
func WithCloser(fn func() error) Option {
	return func(s *Session) { s.closers = append(s.closers, fn) }
}

// New creates a locked session.
func New(indexer network.IndexerService, vault wallet.SeedVault, opts ...Option) *Session {
	s := &Session{
		indexer: indexer,
		vault:   vault,
		net:     &wallet.MainNet,
		stale:   registry.DefaultStaleWindow,
		log:     zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.keys = wallet.NewKeyRing(s.net, s.log)
	if s.registry == nil {
		s.registry = registry.New(indexer, registry.WithLogger(s.log), registry.WithClock(s.now))
	}
	txOpts := append([]tx.Option{tx.WithNetwork(s.net), tx.WithLogger(s.log), tx.WithClock(s.now)}, s.txOpts...)
	s.builder = tx.New(s.keys, indexer, txOpts...)
	s.ledger = s.newLedger()
	return s
}

func (s *Session) newLedger() *ledger.Ledger {
	return ledger.New(s.indexer, ledger.WithLogger(s.log), ledger.WithClock(s.now))
}

// Network returns the session network.
func (s *Session) Network() *wallet.NetworkConfig { return s.net }

// Indexer returns the indexer the session reads from.
func (s *Session) Indexer() network.IndexerService { return s.indexer }

// Registry returns the token registry.
func (s *Session) Registry() *registry.Registry { return s.registry }

// Builder returns the transaction builder.
func (s *Session) Builder() *tx.Builder { return s.builder }

// Unlock derives the active key from the vault. The seed is wiped before
// Unlock returns.
func (s *Session) Unlock(password string) error {
	if s.vault == nil {
		return ErrNoVault
	}
	if err := s.keys.Unlock(s.vault, password); err != nil {
		return err
	}
	s.mu.Lock()
	s.ledger = s.newLedger()
	s.mu.Unlock()
	return nil
}

// UnlockWithSeed derives the active key from seed directly.
func (s *Session) UnlockWithSeed(seed []byte) error {
	if err := s.keys.UnlockWithSeed(seed); err != nil {
		return err
	}
	s.mu.Lock()
	s.ledger = s.newLedger()
	s.mu.Unlock()
	return nil
}

// Lock discards the key and every snapshot.
func (s *Session) Lock() {
	s.keys.Lock()
	if s.vault != nil {
		s.vault.Lock()
	}
	s.mu.Lock()
	s.ledger = s.newLedger()
	s.mu.Unlock()
}

// Unlocked reports whether a key is loaded.
func (s *Session) Unlocked() bool { return s.keys.Unlocked() }

// Address returns the active receive address.
func (s *Session) Address() (string, error) { return s.keys.Address() }

// Close releases caches opened for the session.
func (s *Session) Close() error {
	s.Lock()
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}

func (s *Session) currentLedger() *ledger.Ledger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger
}

// Refresh fetches a live snapshot of the wallet's outputs.
func (s *Session) Refresh(ctx context.Context) (*ledger.Snapshot, error) {
	addr, err := s.keys.Address()
	if err != nil {
		return nil, err
	}
	return s.currentLedger().Refresh(ctx, addr)
}

// Balance refreshes and returns the balance breakdown. When the refresh
// fails but an earlier snapshot exists, that snapshot is returned with
// View.Freshness set to stale and View.LastError set; err is nil. err is
// only returned when there is nothing to show.
func (s *Session) Balance(ctx context.Context) (ledger.BalanceBreakdown, ledger.View, error) {
	l := s.currentLedger()
	_, rerr := s.Refresh(ctx)
	b, v, err := l.Balance()
	if err != nil {
		if rerr != nil {
			return b, v, rerr
		}
		return b, v, err
	}
	return b, v, nil
}

// Holdings refreshes and returns per-token holdings with decimals from
// the registry. Staleness is reported as in Balance.
func (s *Session) Holdings(ctx context.Context) ([]ledger.TokenHolding, ledger.View, error) {
	l := s.currentLedger()
	_, rerr := s.Refresh(ctx)
	v := l.View()
	if v.Snapshot == nil {
		if rerr != nil {
			return nil, v, rerr
		}
		return nil, v, ledger.ErrNoSnapshot
	}
	decimals := s.registry.Decimals(ctx, v.Snapshot.TokenIDs())
	return ledger.Holdings(v.Snapshot, decimals), v, nil
}

// TokenSupply returns the supply record of tokenID, resyncing it when the
// cached copy is older than the stale window. fresh is false when a stale
// record is returned alongside a sync error.
func (s *Session) TokenSupply(ctx context.Context, tokenID string) (*registry.SupplyRecord, bool, error) {
	return s.registry.Lookup(ctx, tokenID, s.stale)
}

// SyncTokens resyncs every token, reporting failures per token.
func (s *Session) SyncTokens(ctx context.Context, tokenIDs []string) []registry.SyncResult {
	return s.registry.SyncAll(ctx, tokenIDs)
}

// CreatorStatus resolves whether this wallet created tokenID.
func (s *Session) CreatorStatus(ctx context.Context, tokenID string) (authz.CreatorStatus, error) {
	addr, err := s.keys.Address()
	if err != nil {
		return authz.NotCreator, err
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return authz.NotCreator, err
	}
	if authz.HasMintAuthority(tokenID, snap.Tokens) {
		return authz.ProvenCreator, nil
	}
	rec, _, err := s.registry.Lookup(ctx, tokenID, s.stale)
	if rec == nil {
		return authz.NotCreator, err
	}
	return authz.ResolveCreatorStatus(ctx, addr, tokenID, snap.Tokens, rec.FixedSupply, s.profiles)
}

// TokenParams returns the protocol and decimals needed to build a
// transaction for tokenID.
func (s *Session) TokenParams(ctx context.Context, tokenID string) (token.Protocol, uint8, error) {
	snap := s.currentLedger().Snapshot()
	if snap == nil {
		var err error
		if snap, err = s.Refresh(ctx); err != nil {
			return 0, 0, err
		}
	}
	var proto token.Protocol
	found := false
	for _, u := range snap.Tokens {
		if strings.EqualFold(u.Token.TokenID, tokenID) {
			proto, found = u.Token.Protocol, true
			break
		}
	}
	if !found {
		return 0, 0, fmt.Errorf("%w: %s", ErrTokenNotHeld, tokenID)
	}
	dec, ok := s.registry.Decimals(ctx, []string{tokenID})[tokenID]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnknownToken, tokenID)
	}
	return proto, dec, nil
}

// snapshot always refreshes: builds never run on stale data.
func (s *Session) snapshot(ctx context.Context) (*ledger.Snapshot, error) {
	return s.Refresh(ctx)
}

// run builds against a live snapshot and submits. The draft is returned
// even when submission fails so the caller can Resubmit it.
func (s *Session) run(ctx context.Context, build func(*ledger.Snapshot) (*tx.Draft, error)) (*tx.Draft, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	d, err := build(snap)
	if err != nil {
		return nil, err
	}
	if _, err := s.builder.Submit(ctx, d); err != nil {
		return d, err
	}
	return d, nil
}

// Send transfers tokens.
func (s *Session) Send(ctx context.Context, req tx.SendRequest) (*tx.Draft, error) {
	return s.run(ctx, func(snap *ledger.Snapshot) (*tx.Draft, error) {
		return s.builder.BuildSend(snap, req)
	})
}

// Mint creates new atoms. It fails with tx.ErrMintAuthorityRequired,
// before any network call, when the wallet lacks the baton.
func (s *Session) Mint(ctx context.Context, req tx.MintRequest) (*tx.Draft, error) {
	return s.run(ctx, func(snap *ledger.Snapshot) (*tx.Draft, error) {
		return s.builder.BuildMint(snap, req)
	})
}

// Burn destroys atoms.
func (s *Session) Burn(ctx context.Context, req tx.BurnRequest) (*tx.Draft, error) {
	return s.run(ctx, func(snap *ledger.Snapshot) (*tx.Draft, error) {
		return s.builder.BuildBurn(snap, req)
	})
}

// Airdrop splits tokens across recipients.
func (s *Session) Airdrop(ctx context.Context, req tx.AirdropRequest) (*tx.Draft, error) {
	return s.run(ctx, func(snap *ledger.Snapshot) (*tx.Draft, error) {
		return s.builder.BuildAirdrop(snap, req)
	})
}

// SendToMany pays explicit token amounts to several recipients at once.
func (s *Session) SendToMany(ctx context.Context, req tx.MultiSendRequest) (*tx.Draft, error) {
	return s.run(ctx, func(snap *ledger.Snapshot) (*tx.Draft, error) {
		return s.builder.BuildSendToMany(snap, req)
	})
}

// MaxSendable refreshes and returns the largest XEC amount SendXec can pay
// to a single address.
func (s *Session) MaxSendable(ctx context.Context) (uint64, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return s.builder.MaxSendable(snap), nil
}

// SendXec pays XEC.
func (s *Session) SendXec(ctx context.Context, destination string, sats uint64) (*tx.Draft, error) {
	return s.run(ctx, func(snap *ledger.Snapshot) (*tx.Draft, error) {
		return s.builder.BuildSendXec(snap, destination, sats)
	})
}

// AirdropXecToHolders pays total sats to the holders of tokenIDs, excluding
// this wallet.
func (s *Session) AirdropXecToHolders(ctx context.Context, tokenIDs []string, total uint64, mode airdrop.Mode, minAtoms uint64) (*tx.Draft, error) {
	addr, err := s.keys.Address()
	if err != nil {
		return nil, err
	}
	holders, err := airdrop.FetchHolders(ctx, s.indexer, tokenIDs, airdrop.HolderOptions{
		Network:  s.net,
		Exclude:  []string{addr},
		MinAtoms: minAtoms,
	})
	if err != nil {
		return nil, err
	}
	recipients := airdrop.Recipients(holders)
	return s.run(ctx, func(snap *ledger.Snapshot) (*tx.Draft, error) {
		return s.builder.BuildXecAirdrop(snap, total, recipients, mode)
	})
}

// CreateToken issues a new token; its id is the returned draft's txid.
func (s *Session) CreateToken(ctx context.Context, req tx.GenesisRequest) (*tx.Draft, error) {
	return s.run(ctx, func(snap *ledger.Snapshot) (*tx.Draft, error) {
		return s.builder.BuildGenesis(snap, req)
	})
}

// SendMessage posts an OP_RETURN memo.
func (s *Session) SendMessage(ctx context.Context, message string) (*tx.Draft, error) {
	return s.run(ctx, func(snap *ledger.Snapshot) (*tx.Draft, error) {
		return s.builder.BuildMessage(snap, message)
	})
}

// Resubmit broadcasts a signed draft again.
func (s *Session) Resubmit(ctx context.Context, d *tx.Draft) (string, error) {
	return s.builder.Submit(ctx, d)
}

// Tip returns the indexer's best block.
func (s *Session) Tip(ctx context.Context) (*network.ChainTip, error) {
	return s.indexer.GetChainTip(ctx)
}
