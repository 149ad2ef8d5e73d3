package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bitfsorg/libetoken-go/network"
)

// Freshness tells a reader whether the snapshot reflects the last refresh.
type Freshness int

const (
	// FreshnessNone means no refresh has succeeded yet.
	FreshnessNone Freshness = iota
	// FreshnessLive means the most recent refresh succeeded.
	FreshnessLive
	// FreshnessStale means the most recent refresh failed and the snapshot
	// is from an earlier one.
	FreshnessStale
)

func (f Freshness) String() string {
	switch f {
	case FreshnessLive:
		return "live"
	case FreshnessStale:
		return "stale"
	}
	return "none"
}

// View is a snapshot together with how current it is.
type View struct {
	Snapshot      *Snapshot
	Freshness     Freshness
	LastRefreshed time.Time
	LastError     error // set when Freshness is FreshnessStale
	LastErrorAt   time.Time
}

// Ledger holds the latest UTXO snapshot for the wallet address. Reads are
// safe from any goroutine. Refresh replaces the snapshot only when the new
// one was started after the one it replaces, so a slow response cannot
// overwrite a fresher one.
type Ledger struct {
	indexer network.IndexerService
	now     func() time.Time
	log     zerolog.Logger

	mu          sync.RWMutex
	current     *Snapshot
	lastErr     error
	lastErrAt   time.Time
	lastAttempt time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the ledger logger.
func WithLogger(l zerolog.Logger) Option {
	return func(ld *Ledger) { ld.log = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(ld *Ledger) { ld.now = now }
}

// New creates a ledger reading from indexer.
func New(indexer network.IndexerService, opts ...Option) *Ledger {
	l := &Ledger{indexer: indexer, now: time.Now, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Refresh queries every output owned by address and installs the
// classified result. Errors are returned unchanged and recorded, leaving
// the previous snapshot readable as stale.
func (l *Ledger) Refresh(ctx context.Context, address string) (*Snapshot, error) {
	started := l.now()

	raw, err := l.indexer.GetUtxosForAddress(ctx, address)
	if err == nil {
		var utxos []*Utxo
		utxos, err = FromIndexerAll(raw)
		if err == nil {
			snap := Classify(address, utxos, started)
			l.install(snap)
			l.log.Debug().
				Str("address", address).
				Int("xec_utxos", len(snap.PureXec)).
				Int("token_utxos", len(snap.Tokens)).
				Msg("utxo snapshot refreshed")
			return snap, nil
		}
	}

	l.mu.Lock()
	if !started.Before(l.lastAttempt) {
		l.lastErr = err
		l.lastErrAt = started
		l.lastAttempt = started
	}
	l.mu.Unlock()
	l.log.Warn().Err(err).Str("address", address).Msg("utxo refresh failed")
	return nil, fmt.Errorf("ledger: refresh %s: %w", address, err)
}

func (l *Ledger) install(snap *Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current != nil && l.current.Address == snap.Address && snap.TakenAt.Before(l.current.TakenAt) {
		return
	}
	l.current = snap
	if !snap.TakenAt.Before(l.lastAttempt) {
		l.lastAttempt = snap.TakenAt
		l.lastErr = nil
		l.lastErrAt = time.Time{}
	}
}

// Snapshot returns the current snapshot, or nil before the first refresh.
func (l *Ledger) Snapshot() *Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// View returns the current snapshot with its freshness.
func (l *Ledger) View() View {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v := View{Snapshot: l.current}
	if l.current == nil {
		v.Freshness = FreshnessNone
		v.LastError = l.lastErr
		v.LastErrorAt = l.lastErrAt
		return v
	}
	v.LastRefreshed = l.current.TakenAt
	if l.lastErr != nil {
		v.Freshness = FreshnessStale
		v.LastError = l.lastErr
		v.LastErrorAt = l.lastErrAt
	} else {
		v.Freshness = FreshnessLive
	}
	return v
}

// Balance computes the breakdown of the current snapshot.
func (l *Ledger) Balance() (BalanceBreakdown, View, error) {
	v := l.View()
	if v.Snapshot == nil {
		return BalanceBreakdown{}, v, ErrNoSnapshot
	}
	return ComputeBalance(v.Snapshot), v, nil
}
