package tx

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bitfsorg/libetoken-go/ledger"
	"github.com/bitfsorg/libetoken-go/wallet"
)

// State is a draft's position in its lifecycle:
// Draft -> InputsSelected -> Signed -> Broadcast -> Confirmed | Failed.
type State int

const (
	StateDraft State = iota
	StateInputsSelected
	StateSigned
	StateBroadcast
	StateConfirmed
	StateFailed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateDraft:
		return "draft"
	case StateInputsSelected:
		return "inputs-selected"
	case StateSigned:
		return "signed"
	case StateBroadcast:
		return "broadcast"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateFailed
}

// Kind names the operation a draft performs.
type Kind string

const (
	KindSend       Kind = "send"
	KindMint       Kind = "mint"
	KindBurn       Kind = "burn"
	KindAirdrop    Kind = "airdrop"
	KindMultiSend  Kind = "multi_send"
	KindSendXec    Kind = "send_xec"
	KindXecAirdrop Kind = "xec_airdrop"
	KindGenesis    Kind = "genesis"
	KindMessage    Kind = "message"
)

// Output is one transaction output.
type Output struct {
	Sats   uint64
	Script []byte
}

// Draft is one transaction moving through the lifecycle. The builder
// creates it in StateInputsSelected with its inputs leased.
type Draft struct {
	ID        uuid.UUID
	Kind      Kind
	TokenID   string // empty for XEC-only drafts
	CreatedAt time.Time

	Inputs  []*ledger.Utxo
	Outputs []Output
	Fee     uint64

	// XecChange and TokenChange are zero when the draft has no such output.
	XecChange   uint64
	TokenChange uint64

	mu       sync.Mutex
	state    State
	unsigned []byte
	signed   *wallet.SignedTx
	txid     string
	reason   error
}

// State returns the current lifecycle state.
func (d *Draft) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// TxID returns the transaction id once signed, empty before.
func (d *Draft) TxID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.signed == nil {
		return ""
	}
	return d.signed.TxID
}

// RawTx returns the signed serialization, nil before signing.
func (d *Draft) RawTx() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.signed == nil {
		return nil
	}
	return append([]byte(nil), d.signed.Raw...)
}

// Unsigned returns the unsigned serialization.
func (d *Draft) Unsigned() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.unsigned...)
}

// Reason returns why the draft failed, nil unless StateFailed.
func (d *Draft) Reason() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reason
}

// Outpoints lists the outpoints the draft spends.
func (d *Draft) Outpoints() []ledger.Outpoint {
	ops := make([]ledger.Outpoint, len(d.Inputs))
	for i, u := range d.Inputs {
		ops[i] = u.Outpoint
	}
	return ops
}

// Spends reports whether the draft spends op.
func (d *Draft) Spends(op ledger.Outpoint) bool {
	for _, u := range d.Inputs {
		if u.Outpoint == op {
			return true
		}
	}
	return false
}

func (d *Draft) fail(reason error) {
	d.state = StateFailed
	d.reason = reason
}
