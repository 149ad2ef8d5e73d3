package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientFunds indicates the wallet's spendable XEC cannot cover
	// the target plus fee.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrInsufficientTokenBalance indicates the wallet's token UTXOs cannot
	// cover the requested token amount.
	ErrInsufficientTokenBalance = errors.New("ledger: insufficient token balance")

	// ErrNoSnapshot indicates a read before the first successful refresh.
	ErrNoSnapshot = errors.New("ledger: no UTXO snapshot yet")

	// ErrInvalidUtxo indicates an indexer UTXO that could not be decoded.
	ErrInvalidUtxo = errors.New("ledger: invalid UTXO")

	// ErrInvalidTarget indicates a zero selection target.
	ErrInvalidTarget = errors.New("ledger: target must be positive")
)

// ShortfallError reports how far a selection fell short. TokenID is empty
// for XEC shortfalls, in which case Need and Have are satoshis; otherwise
// they are token atoms.
type ShortfallError struct {
	TokenID string
	Need    uint64
	Have    uint64
}

func (e *ShortfallError) Error() string {
	if e.TokenID != "" {
		return fmt.Sprintf("%s: token %s: need %d atoms, have %d (short %d)",
			ErrInsufficientTokenBalance, e.TokenID, e.Need, e.Have, e.Shortfall())
	}
	return fmt.Sprintf("%s: need %d sat, have %d sat (short %d)",
		ErrInsufficientFunds, e.Need, e.Have, e.Shortfall())
}

// Unwrap lets errors.Is match ErrInsufficientFunds or
// ErrInsufficientTokenBalance.
func (e *ShortfallError) Unwrap() error {
	if e.TokenID != "" {
		return ErrInsufficientTokenBalance
	}
	return ErrInsufficientFunds
}

// Shortfall is Need minus Have.
func (e *ShortfallError) Shortfall() uint64 {
	if e.Have >= e.Need {
		return 0
	}
	return e.Need - e.Have
}
