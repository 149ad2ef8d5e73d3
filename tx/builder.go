// Package tx assembles, signs and submits eCash token transactions.
//
// Every Build* method is pure apart from leasing its inputs: it reads a
// ledger snapshot and returns a Draft in StateInputsSelected. Submit signs
// the draft once and broadcasts it; a failed broadcast leaves the draft
// Signed so the caller can resubmit the identical transaction.
package tx

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bitfsorg/libetoken-go/airdrop"
	"github.com/bitfsorg/libetoken-go/authz"
	"github.com/bitfsorg/libetoken-go/ledger"
	"github.com/bitfsorg/libetoken-go/network"
	"github.com/bitfsorg/libetoken-go/token"
	"github.com/bitfsorg/libetoken-go/wallet"
)

// Signer is the key capability the builder needs. *wallet.KeyRing
// implements it.
type Signer interface {
	LockingScript() ([]byte, error)
	SignInputs(unsignedTx []byte, spent []wallet.SpentOutput) (*wallet.SignedTx, error)
}

// Builder builds drafts for one wallet. It is safe for concurrent use;
// concurrent builds never select the same input.
type Builder struct {
	signer  Signer
	indexer network.IndexerService
	net     *wallet.NetworkConfig
	leases  *LeaseTable
	feeRate uint64
	metrics *Metrics
	log     zerolog.Logger
	now     func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithNetwork sets the network used to decode destination addresses.
func WithNetwork(n *wallet.NetworkConfig) Option {
	return func(b *Builder) { b.net = n }
}

// WithFeeRate sets the fee rate in sat/kB.
func WithFeeRate(rate uint64) Option {
	return func(b *Builder) { b.feeRate = rate }
}

// WithLeaseTable shares a lease table between builders of the same wallet.
func WithLeaseTable(t *LeaseTable) Option {
	return func(b *Builder) { b.leases = t }
}

// WithMetrics records build and submit counters.
func WithMetrics(m *Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// WithLogger sets the builder's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Builder) { b.log = l }
}

// WithClock overrides the draft timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// New creates a builder signing with signer and broadcasting through indexer.
func New(signer Signer, indexer network.IndexerService, opts ...Option) *Builder {
	b := &Builder{
		signer:  signer,
		indexer: indexer,
		net:     &wallet.MainNet,
		feeRate: ledger.DefaultFeeRate,
		log:     zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.leases == nil {
		b.leases = NewLeaseTable()
	}
	return b
}

// Leases returns the builder's lease table.
func (b *Builder) Leases() *LeaseTable {
	return b.leases
}

// dust is the XEC carried by every token output.
func (b *Builder) dust() uint64 {
	if b.net.TokenDustSat == 0 {
		return ledger.DustLimit
	}
	return b.net.TokenDustSat
}

// SendRequest transfers Amount atoms of a token to Destination.
type SendRequest struct {
	TokenID     string
	Protocol    token.Protocol
	Decimals    uint8
	Destination string
	Amount      uint64
	// Message is an optional memo carried in the OP_RETURN. ALP only.
	Message string
}

// MintRequest creates Amount new atoms of a token held by this wallet's baton.
type MintRequest struct {
	TokenID  string
	Protocol token.Protocol
	Decimals uint8
	Amount   uint64
}

// BurnRequest destroys Amount atoms of a token.
type BurnRequest struct {
	TokenID  string
	Protocol token.Protocol
	Decimals uint8
	Amount   uint64
}

// AirdropRequest splits Total atoms of a token across Recipients.
type AirdropRequest struct {
	TokenID    string
	Protocol   token.Protocol
	Decimals   uint8
	Total      uint64
	Recipients []airdrop.Recipient
	Mode       airdrop.Mode
	Message    string
}

// TokenPayment is one explicit token payout.
type TokenPayment struct {
	Address string
	Amount  uint64
}

// MultiSendRequest pays each of Payments its own Amount of a token in one
// transaction.
type MultiSendRequest struct {
	TokenID  string
	Protocol token.Protocol
	Decimals uint8
	Payments []TokenPayment
	Message  string
}

// GenesisRequest creates a new token. The token id is the draft's txid.
type GenesisRequest struct {
	Protocol   token.Protocol
	Info       token.GenesisInfo
	InitialQty uint64
	// WithBaton creates a variable-supply token by emitting a mint baton.
	WithBaton bool
}

// BuildSend builds a token transfer. Outputs: OP_RETURN, destination,
// token change to self when any, XEC change.
func (b *Builder) BuildSend(snap *ledger.Snapshot, req SendRequest) (*Draft, error) {
	if err := checkTokenRequest(snap, req.TokenID, req.Amount); err != nil {
		return nil, err
	}
	d, err := b.payTokens(KindSend, snap, req.TokenID, req.Protocol,
		[]airdrop.Allocation{{Address: req.Destination, Amount: req.Amount}}, req.Message)
	if err != nil {
		return nil, err
	}
	b.log.Debug().Str("draft", d.ID.String()).Str("token_id", req.TokenID).
		Str("amount", token.FormatAmount(req.Amount, req.Decimals)).Msg("send built")
	return d, nil
}

// BuildMint builds a mint. The wallet's baton is spent and re-emitted to
// self at output 2; the new atoms go to self at output 1.
func (b *Builder) BuildMint(snap *ledger.Snapshot, req MintRequest) (*Draft, error) {
	if err := checkTokenRequest(snap, req.TokenID, req.Amount); err != nil {
		return nil, err
	}
	if !authz.HasMintAuthority(req.TokenID, snap.Tokens) {
		return nil, fmt.Errorf("%w: no mint baton for %s", ErrMintAuthorityRequired, req.TokenID)
	}
	batons := b.leases.filter(snap.Batons(req.TokenID))
	if len(batons) == 0 {
		return nil, fmt.Errorf("%w: mint baton for %s", ErrInputsLeased, req.TokenID)
	}
	baton := batons[0]
	if baton.Token.Protocol != req.Protocol {
		return nil, fmt.Errorf("%w: baton is %s, request is %s", ErrProtocolMismatch, baton.Token.Protocol, req.Protocol)
	}
	self, err := b.signer.LockingScript()
	if err != nil {
		return nil, err
	}

	opReturn, err := token.MintScript(req.Protocol, req.TokenID, req.Amount)
	if err != nil {
		return nil, err
	}
	paid := []Output{
		{Sats: b.dust(), Script: self},
		{Sats: b.dust(), Script: self},
	}
	d, err := b.finish(KindMint, req.TokenID, snap, self, []*ledger.Utxo{baton}, opReturn, paid)
	if err != nil {
		return nil, err
	}
	b.log.Debug().Str("draft", d.ID.String()).Str("token_id", req.TokenID).
		Str("amount", token.FormatAmount(req.Amount, req.Decimals)).Msg("mint built")
	return d, nil
}

// BuildBurn builds a burn of Amount atoms. Any remainder of the selected
// token inputs returns to self at output 1. The mint baton is never spent.
func (b *Builder) BuildBurn(snap *ledger.Snapshot, req BurnRequest) (*Draft, error) {
	if err := checkTokenRequest(snap, req.TokenID, req.Amount); err != nil {
		return nil, err
	}
	self, err := b.signer.LockingScript()
	if err != nil {
		return nil, err
	}
	tsel, err := b.selectTokens(snap, req.TokenID, req.Protocol, req.Amount)
	if err != nil {
		return nil, err
	}

	opReturn, err := token.BurnScript(req.Protocol, req.TokenID, req.Amount, tsel.Change)
	if err != nil {
		return nil, err
	}
	var paid []Output
	if tsel.Change > 0 {
		paid = append(paid, Output{Sats: b.dust(), Script: self})
	}
	d, err := b.finish(KindBurn, req.TokenID, snap, self, tsel.Inputs, opReturn, paid)
	if err != nil {
		return nil, err
	}
	d.TokenChange = tsel.Change
	b.log.Debug().Str("draft", d.ID.String()).Str("token_id", req.TokenID).
		Str("amount", token.FormatAmount(req.Amount, req.Decimals)).Msg("burn built")
	return d, nil
}

// BuildAirdrop builds one SEND paying every recipient its share of Total.
// The recipient count is bounded by the protocol's output limit minus one
// slot kept for token change.
func (b *Builder) BuildAirdrop(snap *ledger.Snapshot, req AirdropRequest) (*Draft, error) {
	if err := checkTokenRequest(snap, req.TokenID, req.Total); err != nil {
		return nil, err
	}
	allocs, err := airdrop.Split(req.Total, req.Recipients, req.Mode)
	if err != nil {
		return nil, err
	}
	d, err := b.payTokens(KindAirdrop, snap, req.TokenID, req.Protocol, allocs, req.Message)
	if err != nil {
		return nil, err
	}
	b.log.Debug().Str("draft", d.ID.String()).Str("token_id", req.TokenID).
		Int("recipients", len(allocs)).Str("mode", req.Mode.String()).Msg("airdrop built")
	return d, nil
}

// BuildSendToMany builds one SEND paying each payment its explicit amount,
// laid out like an airdrop.
func (b *Builder) BuildSendToMany(snap *ledger.Snapshot, req MultiSendRequest) (*Draft, error) {
	if len(req.Payments) == 0 {
		return nil, fmt.Errorf("%w: no payments", ErrInvalidAmount)
	}
	allocs := make([]airdrop.Allocation, len(req.Payments))
	var total uint64
	for i, p := range req.Payments {
		if p.Amount == 0 {
			return nil, fmt.Errorf("%w: payment %d is zero", ErrInvalidAmount, i)
		}
		sum, ok := ledger.AddSats(total, p.Amount)
		if !ok {
			return nil, fmt.Errorf("%w: payments overflow", ErrInvalidAmount)
		}
		total = sum
		allocs[i] = airdrop.Allocation{Address: p.Address, Amount: p.Amount}
	}
	if err := checkTokenRequest(snap, req.TokenID, total); err != nil {
		return nil, err
	}
	d, err := b.payTokens(KindMultiSend, snap, req.TokenID, req.Protocol, allocs, req.Message)
	if err != nil {
		return nil, err
	}
	b.log.Debug().Str("draft", d.ID.String()).Str("token_id", req.TokenID).
		Int("recipients", len(allocs)).Str("total", token.FormatAmount(total, req.Decimals)).Msg("multi-send built")
	return d, nil
}

// payTokens lays out a SEND as OP_RETURN, one output per allocation,
// token change to self when any, then XEC change.
func (b *Builder) payTokens(kind Kind, snap *ledger.Snapshot, tokenID string, p token.Protocol,
	allocs []airdrop.Allocation, message string) (*Draft, error) {
	if limit := p.MaxOutputs() - 1; len(allocs) > limit {
		return nil, fmt.Errorf("%w: %d recipients, %s allows %d", token.ErrTooManyOutputs, len(allocs), p, limit)
	}

	var total uint64
	amounts := make([]uint64, 0, len(allocs)+1)
	paid := make([]Output, 0, len(allocs)+1)
	for _, a := range allocs {
		dest, err := b.tokenDestination(a.Address)
		if err != nil {
			return nil, err
		}
		sum, ok := ledger.AddSats(total, a.Amount)
		if !ok {
			return nil, fmt.Errorf("%w: amounts overflow", ErrInvalidAmount)
		}
		total = sum
		amounts = append(amounts, a.Amount)
		paid = append(paid, Output{Sats: b.dust(), Script: dest})
	}

	self, err := b.signer.LockingScript()
	if err != nil {
		return nil, err
	}
	tsel, err := b.selectTokens(snap, tokenID, p, total)
	if err != nil {
		return nil, err
	}
	if tsel.Change > 0 {
		amounts = append(amounts, tsel.Change)
		paid = append(paid, Output{Sats: b.dust(), Script: self})
	}
	opReturn, err := token.SendScriptWithMemo(p, tokenID, amounts, message)
	if err != nil {
		return nil, err
	}

	d, err := b.finish(kind, tokenID, snap, self, tsel.Inputs, opReturn, paid)
	if err != nil {
		return nil, err
	}
	d.TokenChange = tsel.Change
	return d, nil
}

// MaxSendable is the largest XEC payment BuildSendXec can fund from snap,
// leaving out inputs leased to other drafts.
func (b *Builder) MaxSendable(snap *ledger.Snapshot) uint64 {
	if snap == nil {
		return 0
	}
	return ledger.MaxSendable(&ledger.Snapshot{PureXec: b.leases.filter(snap.PureXec)}, b.feeRate)
}

// BuildSendXec builds a plain XEC payment. P2SH destinations are allowed.
func (b *Builder) BuildSendXec(snap *ledger.Snapshot, destination string, sats uint64) (*Draft, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: snapshot", ErrNilParam)
	}
	if sats < b.dust() {
		return nil, fmt.Errorf("%w: %d < %d sat", ErrBelowDust, sats, b.dust())
	}
	dest, err := wallet.ScriptForAddress(destination, b.net)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDestination, err)
	}
	self, err := b.signer.LockingScript()
	if err != nil {
		return nil, err
	}
	return b.finish(KindSendXec, "", snap, self, nil, nil, []Output{{Sats: sats, Script: dest}})
}

// BuildXecAirdrop pays XEC to recipients. In equal mode every share must
// clear the dust limit. In prorata mode shares below dust are dropped and
// stay in the wallet, so the paid total may be less than total.
func (b *Builder) BuildXecAirdrop(snap *ledger.Snapshot, total uint64, recipients []airdrop.Recipient, mode airdrop.Mode) (*Draft, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: snapshot", ErrNilParam)
	}
	allocs, err := airdrop.Split(total, recipients, mode)
	if err != nil {
		return nil, err
	}

	var paid []Output
	for _, a := range allocs {
		if a.Amount < b.dust() {
			if mode == airdrop.ModeEqual {
				return nil, fmt.Errorf("%w: equal share %d sat", ErrBelowDust, a.Amount)
			}
			continue
		}
		dest, err := wallet.ScriptForAddress(a.Address, b.net)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDestination, err)
		}
		paid = append(paid, Output{Sats: a.Amount, Script: dest})
	}
	if len(paid) == 0 {
		return nil, fmt.Errorf("%w: every share is below %d sat", ErrBelowDust, b.dust())
	}

	self, err := b.signer.LockingScript()
	if err != nil {
		return nil, err
	}
	d, err := b.finish(KindXecAirdrop, "", snap, self, nil, nil, paid)
	if err != nil {
		return nil, err
	}
	b.log.Debug().Str("draft", d.ID.String()).Int("recipients", len(paid)).
		Int("dropped", len(allocs)-len(paid)).Msg("xec airdrop built")
	return d, nil
}

// BuildGenesis builds a token creation issuing InitialQty atoms to self.
func (b *Builder) BuildGenesis(snap *ledger.Snapshot, req GenesisRequest) (*Draft, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: snapshot", ErrNilParam)
	}
	if req.InitialQty == 0 {
		return nil, fmt.Errorf("%w: initial quantity must be positive", ErrInvalidAmount)
	}
	opReturn, err := token.GenesisScript(req.Protocol, req.Info, req.InitialQty, req.WithBaton)
	if err != nil {
		return nil, err
	}
	self, err := b.signer.LockingScript()
	if err != nil {
		return nil, err
	}
	paid := []Output{{Sats: b.dust(), Script: self}}
	if req.WithBaton {
		paid = append(paid, Output{Sats: b.dust(), Script: self})
	}
	return b.finish(KindGenesis, "", snap, self, nil, opReturn, paid)
}

// BuildMessage builds a transaction carrying an OP_RETURN memo.
func (b *Builder) BuildMessage(snap *ledger.Snapshot, message string) (*Draft, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: snapshot", ErrNilParam)
	}
	opReturn, err := token.MessageScript(message)
	if err != nil {
		return nil, err
	}
	self, err := b.signer.LockingScript()
	if err != nil {
		return nil, err
	}
	return b.finish(KindMessage, "", snap, self, nil, opReturn, nil)
}

func checkTokenRequest(snap *ledger.Snapshot, tokenID string, amount uint64) error {
	if snap == nil {
		return fmt.Errorf("%w: snapshot", ErrNilParam)
	}
	if err := token.ValidateTokenID(tokenID); err != nil {
		return err
	}
	if amount == 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}
	return nil
}

// tokenDestination resolves a token recipient. Only P2PKH can receive.
func (b *Builder) tokenDestination(addr string) ([]byte, error) {
	a, err := wallet.DecodeAddress(addr, b.net)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDestination, err)
	}
	if a.Type != wallet.AddressP2PKH {
		return nil, fmt.Errorf("%w: token outputs need a P2PKH address", ErrInvalidDestination)
	}
	return wallet.P2PKHScript(a.Hash)
}

// selectTokens picks unleased token outputs of tokenID covering amount.
func (b *Builder) selectTokens(snap *ledger.Snapshot, tokenID string, p token.Protocol, amount uint64) (*ledger.TokenSelection, error) {
	tsel, err := ledger.SelectTokenInputs(tokenID, amount, b.leases.filter(snap.Tokens))
	if err != nil {
		return nil, fmt.Errorf("tx: select %s: %w", tokenID, err)
	}
	for _, u := range tsel.Inputs {
		if u.Token.Protocol != p {
			return nil, fmt.Errorf("%w: %s holds %s, request is %s", ErrProtocolMismatch, u.Outpoint, u.Token.Protocol, p)
		}
	}
	return tsel, nil
}

// finish funds the outputs with XEC inputs, lays out the transaction as
// [OP_RETURN] paid... [change] and leases every input.
func (b *Builder) finish(kind Kind, tokenID string, snap *ledger.Snapshot, self []byte,
	fixed []*ledger.Utxo, opReturn []byte, paid []Output) (*Draft, error) {
	var target uint64
	for _, o := range paid {
		sum, ok := ledger.AddSats(target, o.Sats)
		if !ok {
			return nil, fmt.Errorf("%w: outputs overflow", ErrInvalidAmount)
		}
		target = sum
	}
	sel, err := ledger.SelectInputs(target, b.leases.filter(snap.PureXec), ledger.Policy{
		FeeRate:     b.feeRate,
		Outputs:     len(paid),
		OpReturnLen: len(opReturn),
		FixedInputs: fixed,
		Dust:        b.dust(),
	})
	if err != nil {
		return nil, fmt.Errorf("tx: fund %s: %w", kind, err)
	}

	d := &Draft{
		ID:        uuid.New(),
		Kind:      kind,
		TokenID:   tokenID,
		CreatedAt: b.now(),
		Fee:       sel.Fee,
		XecChange: sel.Change,
	}
	d.Inputs = append(append(d.Inputs, fixed...), sel.Inputs...)
	if opReturn != nil {
		d.Outputs = append(d.Outputs, Output{Script: opReturn})
	}
	d.Outputs = append(d.Outputs, paid...)
	if sel.Change > 0 {
		d.Outputs = append(d.Outputs, Output{Sats: sel.Change, Script: self})
	}

	d.unsigned, err = assemble(d.Inputs, d.Outputs)
	if err != nil {
		return nil, err
	}
	if err := b.leases.Acquire(d.ID, d.Outpoints()); err != nil {
		return nil, err
	}
	d.state = StateInputsSelected
	b.metrics.built(kind)
	return d, nil
}

// Sign signs a draft in StateInputsSelected and releases its leases.
// Signing a draft that is already signed is a no-op.
func (b *Builder) Sign(d *Draft) error {
	if d == nil {
		return fmt.Errorf("%w: draft", ErrNilParam)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return b.sign(d)
}

func (b *Builder) sign(d *Draft) error {
	switch d.state {
	case StateInputsSelected:
	case StateSigned, StateBroadcast, StateConfirmed:
		return nil
	default:
		return fmt.Errorf("%w: cannot sign %s draft", ErrInvalidState, d.state)
	}

	spent := make([]wallet.SpentOutput, len(d.Inputs))
	for i, u := range d.Inputs {
		spent[i] = wallet.SpentOutput{Sats: u.Sats, LockingScript: u.Script}
	}
	signed, err := b.signer.SignInputs(d.unsigned, spent)
	if err != nil {
		return err
	}
	d.signed = signed
	d.state = StateSigned
	b.leases.Release(d.ID)
	return nil
}

// Submit signs the draft if needed and broadcasts it, returning the txid.
//
// On a broadcast failure the draft stays Signed and the error is returned;
// calling Submit again sends the identical transaction. A node that already
// knows the transaction counts as success. A rejection for missing or spent
// inputs moves a Signed draft to Failed with ErrInputAlreadySpent. Once the
// draft is Broadcast the same rejection means the earlier broadcast spent
// them, so the txid is returned and the draft stays Broadcast.
func (b *Builder) Submit(ctx context.Context, d *Draft) (string, error) {
	if d == nil {
		return "", fmt.Errorf("%w: draft", ErrNilParam)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case StateInputsSelected:
		if err := b.sign(d); err != nil {
			return "", err
		}
	case StateSigned, StateBroadcast:
	default:
		return "", fmt.Errorf("%w: cannot submit %s draft", ErrInvalidState, d.state)
	}

	txid := d.signed.TxID
	_, err := b.indexer.BroadcastTx(ctx, d.signed.Raw)
	switch {
	case err == nil:
		b.metrics.submitted(d.Kind, outcomeAccepted)
	case network.IsAlreadyKnown(err):
		b.metrics.submitted(d.Kind, outcomeAlreadyKnown)
	case network.IsMissingInputs(err) && d.state == StateBroadcast:
		b.metrics.submitted(d.Kind, outcomeAlreadyKnown)
		b.log.Debug().Str("draft", d.ID.String()).Str("txid", txid).Err(err).Msg("inputs spent by earlier broadcast")
	case network.IsMissingInputs(err) && d.state == StateSigned:
		d.fail(ErrInputAlreadySpent)
		b.metrics.submitted(d.Kind, outcomeInputSpent)
		b.log.Warn().Str("draft", d.ID.String()).Str("txid", txid).Err(err).Msg("inputs spent elsewhere")
		return "", fmt.Errorf("%w: %w", ErrInputAlreadySpent, err)
	default:
		b.metrics.submitted(d.Kind, outcomeError)
		b.log.Warn().Str("draft", d.ID.String()).Str("txid", txid).Err(err).Msg("broadcast failed")
		return "", fmt.Errorf("tx: broadcast %s: %w", txid, err)
	}

	if d.state == StateSigned {
		d.state = StateBroadcast
	}
	b.log.Info().Str("kind", string(d.Kind)).Str("txid", txid).Msg("transaction broadcast")
	return txid, nil
}

// Abandon cancels a draft that has not been broadcast, releasing its
// inputs. Nothing was sent, so abandoning has no outside effect. A draft
// that already failed is left as is.
func (b *Builder) Abandon(d *Draft) error {
	if d == nil {
		return fmt.Errorf("%w: draft", ErrNilParam)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateFailed {
		return nil
	}
	if d.state >= StateBroadcast {
		return fmt.Errorf("%w: cannot abandon %s draft", ErrInvalidState, d.state)
	}
	d.fail(ErrAbandoned)
	b.leases.Release(d.ID)
	return nil
}

// Poll checks a broadcast draft against the indexer and moves it to
// Confirmed once mined. Lookup errors leave the state unchanged.
func (b *Builder) Poll(ctx context.Context, d *Draft) (State, error) {
	if d == nil {
		return StateFailed, fmt.Errorf("%w: draft", ErrNilParam)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateBroadcast {
		return d.state, nil
	}
	got, err := b.indexer.GetTransaction(ctx, d.signed.TxID)
	if err != nil {
		return d.state, fmt.Errorf("tx: poll %s: %w", d.signed.TxID, err)
	}
	if got.Confirmed() {
		d.state = StateConfirmed
	}
	return d.state, nil
}
