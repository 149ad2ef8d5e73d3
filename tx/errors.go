package tx

import (
	"errors"

	"github.com/bitfsorg/libetoken-go/ledger"
)

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("tx: required parameter is nil")

	// ErrInsufficientFunds indicates the wallet cannot cover outputs and fee.
	ErrInsufficientFunds = ledger.ErrInsufficientFunds

	// ErrInsufficientTokenBalance indicates owned token outputs cannot cover
	// the requested amount.
	ErrInsufficientTokenBalance = ledger.ErrInsufficientTokenBalance

	// ErrMintAuthorityRequired indicates a mint without the token's baton.
	// It is a permission failure and must not be retried.
	ErrMintAuthorityRequired = errors.New("tx: mint authority required")

	// ErrInputAlreadySpent indicates an input was spent elsewhere; rebuild
	// from a fresh ledger snapshot.
	ErrInputAlreadySpent = errors.New("tx: input already spent")

	// ErrInputsLeased indicates another in-flight draft holds one of the inputs.
	ErrInputsLeased = errors.New("tx: inputs leased by another draft")

	// ErrInvalidState indicates an operation not allowed in the draft's state.
	ErrInvalidState = errors.New("tx: invalid draft state")

	// ErrAbandoned is the failure reason of a draft abandoned before broadcast.
	ErrAbandoned = errors.New("tx: draft abandoned")

	// ErrInvalidDestination indicates an address unusable for the output.
	ErrInvalidDestination = errors.New("tx: invalid destination")

	// ErrBelowDust indicates an XEC output smaller than the dust limit.
	ErrBelowDust = errors.New("tx: amount below dust limit")

	// ErrInvalidAmount indicates a zero or unencodable amount.
	ErrInvalidAmount = errors.New("tx: invalid amount")

	// ErrProtocolMismatch indicates a request whose protocol differs from the
	// token outputs it would spend. Spending them would burn the tokens.
	ErrProtocolMismatch = errors.New("tx: token protocol mismatch")

	// ErrScriptBuild indicates script or transaction construction failed.
	ErrScriptBuild = errors.New("tx: script build failed")
)
