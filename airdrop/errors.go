package airdrop

import "errors"

var (
	// ErrEmptyRecipientList indicates a distribution with no recipients.
	ErrEmptyRecipientList = errors.New("airdrop: empty recipient list")

	// ErrInvalidDistribution indicates the amounts cannot reconcile to the
	// total: a zero total, zero weights, a recipient left with nothing, or a
	// duplicated recipient.
	ErrInvalidDistribution = errors.New("airdrop: invalid distribution")

	// ErrUnknownMode indicates an unrecognized distribution mode.
	ErrUnknownMode = errors.New("airdrop: unknown distribution mode")

	// ErrNoHolders indicates the reference token has no eligible holders.
	ErrNoHolders = errors.New("airdrop: no eligible holders")
)
