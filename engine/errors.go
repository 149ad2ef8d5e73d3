package engine

import "errors"

var (
	// ErrTokenNotHeld indicates the wallet holds no output of the token.
	ErrTokenNotHeld = errors.New("engine: token not held by this wallet")

	// ErrUnknownToken indicates token metadata could not be resolved.
	ErrUnknownToken = errors.New("engine: token metadata unavailable")

	// ErrNoVault indicates Unlock on a session built without a vault.
	ErrNoVault = errors.New("engine: no seed vault configured")
)
