// Package airdrop splits an amount across recipients and finds the holders
// of a reference token to receive it.
package airdrop

import (
	"fmt"
	"math/bits"
	"strings"
)

// Mode selects how the total is split.
type Mode int

const (
	// ModeEqual gives every recipient the same share.
	ModeEqual Mode = iota
	// ModeProRata weights each share by the recipient's Weight.
	ModeProRata
)

func (m Mode) String() string {
	switch m {
	case ModeEqual:
		return "equal"
	case ModeProRata:
		return "prorata"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts "equal" or "prorata" (also "proportional").
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "equal":
		return ModeEqual, nil
	case "prorata", "pro-rata", "proportional":
		return ModeProRata, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Recipient is one destination. Weight is used by ModeProRata only.
type Recipient struct {
	Address string
	Weight  uint64
}

// Allocation is one recipient's share.
type Allocation struct {
	Address string
	Amount  uint64
}

// Split divides total across recipients. Integer division leaves a
// remainder smaller than the recipient count; it is handed out one unit at
// a time to the first recipients in list order, so the allocations always
// sum to total exactly.
func Split(total uint64, recipients []Recipient, mode Mode) ([]Allocation, error) {
	if len(recipients) == 0 {
		return nil, ErrEmptyRecipientList
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: zero total", ErrInvalidDistribution)
	}
	seen := make(map[string]bool, len(recipients))
	for _, r := range recipients {
		if seen[r.Address] {
			return nil, fmt.Errorf("%w: duplicate recipient %s", ErrInvalidDistribution, r.Address)
		}
		seen[r.Address] = true
	}

	var allocs []Allocation
	var err error
	switch mode {
	case ModeEqual:
		allocs = splitEqual(total, recipients)
	case ModeProRata:
		allocs, err = splitProRata(total, recipients)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownMode, mode)
	}
	if err != nil {
		return nil, err
	}

	var sum uint64
	for _, a := range allocs {
		if a.Amount == 0 {
			return nil, fmt.Errorf("%w: %s would receive nothing", ErrInvalidDistribution, a.Address)
		}
		sum += a.Amount
	}
	if sum != total {
		return nil, fmt.Errorf("%w: allocated %d of %d", ErrInvalidDistribution, sum, total)
	}
	return allocs, nil
}

func splitEqual(total uint64, recipients []Recipient) []Allocation {
	n := uint64(len(recipients))
	share, rem := total/n, total%n
	allocs := make([]Allocation, len(recipients))
	for i, r := range recipients {
		allocs[i] = Allocation{Address: r.Address, Amount: share}
		if uint64(i) < rem {
			allocs[i].Amount++
		}
	}
	return allocs
}

func splitProRata(total uint64, recipients []Recipient) ([]Allocation, error) {
	var weights uint64
	for _, r := range recipients {
		next := weights + r.Weight
		if next < weights {
			return nil, fmt.Errorf("%w: weights overflow", ErrInvalidDistribution)
		}
		weights = next
	}
	if weights == 0 {
		return nil, fmt.Errorf("%w: zero total weight", ErrInvalidDistribution)
	}

	allocs := make([]Allocation, len(recipients))
	var distributed uint64
	for i, r := range recipients {
		// total*weight/weights in 128 bits; the quotient fits since
		// weight <= weights.
		hi, lo := bits.Mul64(total, r.Weight)
		share, _ := bits.Div64(hi, lo, weights)
		allocs[i] = Allocation{Address: r.Address, Amount: share}
		distributed += share
	}

	rem := total - distributed
	for i := 0; rem > 0; i = (i + 1) % len(allocs) {
		allocs[i].Amount++
		rem--
	}
	return allocs, nil
}

// Total sums the allocation amounts.
func Total(allocs []Allocation) uint64 {
	var sum uint64
	for _, a := range allocs {
		sum += a.Amount
	}
	return sum
}
