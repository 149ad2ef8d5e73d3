package tx

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/bitfsorg/libetoken-go/ledger"
)

// LeaseTable grants drafts exclusive use of outpoints so two concurrent
// builds never select the same input. Leases are all-or-nothing per draft.
type LeaseTable struct {
	mu   sync.Mutex
	held map[ledger.Outpoint]uuid.UUID
}

// NewLeaseTable returns an empty table.
func NewLeaseTable() *LeaseTable {
	return &LeaseTable{held: make(map[ledger.Outpoint]uuid.UUID)}
}

// Acquire leases every outpoint to owner, or none of them when any is held
// by a different owner.
func (t *LeaseTable) Acquire(owner uuid.UUID, ops []ledger.Outpoint) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, op := range ops {
		if cur, ok := t.held[op]; ok && cur != owner {
			return fmt.Errorf("%w: %s", ErrInputsLeased, op)
		}
	}
	for _, op := range ops {
		t.held[op] = owner
	}
	return nil
}

// Release drops every lease held by owner.
func (t *LeaseTable) Release(owner uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for op, cur := range t.held {
		if cur == owner {
			delete(t.held, op)
		}
	}
}

// Leased reports whether op is currently held.
func (t *LeaseTable) Leased(op ledger.Outpoint) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.held[op]
	return ok
}

// Len returns the number of leased outpoints.
func (t *LeaseTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.held)
}

// filter drops leased outpoints from utxos.
func (t *LeaseTable) filter(utxos []*ledger.Utxo) []*ledger.Utxo {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*ledger.Utxo, 0, len(utxos))
	for _, u := range utxos {
		if _, ok := t.held[u.Outpoint]; !ok {
			out = append(out, u)
		}
	}
	return out
}
