package token

import "errors"

var (
	// ErrUnknownProtocol indicates a protocol name other than ALP or SLP.
	ErrUnknownProtocol = errors.New("token: unknown protocol")

	// ErrInvalidTokenID indicates a token id that is not 32 bytes of hex.
	ErrInvalidTokenID = errors.New("token: token id must be 64 hex characters")

	// ErrAmountOutOfRange indicates an amount the protocol cannot encode.
	ErrAmountOutOfRange = errors.New("token: amount out of range")

	// ErrTooManyOutputs indicates more token outputs than the protocol allows.
	ErrTooManyOutputs = errors.New("token: too many token outputs")

	// ErrNoAmounts indicates a SEND or MINT without any amount.
	ErrNoAmounts = errors.New("token: at least one amount required")

	// ErrInvalidGenesis indicates malformed genesis fields.
	ErrInvalidGenesis = errors.New("token: invalid genesis info")

	// ErrInvalidAmount indicates a display amount that cannot be parsed.
	ErrInvalidAmount = errors.New("token: invalid amount")

	// ErrEmptyMessage indicates an empty OP_RETURN memo.
	ErrEmptyMessage = errors.New("token: message is empty")

	// ErrMessageTooLong indicates an OP_RETURN memo above MaxMessageLen bytes.
	ErrMessageTooLong = errors.New("token: message too long")

	// ErrMemoUnsupported indicates a memo the token script cannot carry.
	// SLP's OP_RETURN holds only the token payload.
	ErrMemoUnsupported = errors.New("token: memo not supported")
)
