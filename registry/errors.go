package registry

import "errors"

var (
	// ErrRecordNotFound indicates no cached record for the token.
	ErrRecordNotFound = errors.New("registry: record not found")

	// ErrInvalidGenesis indicates the genesis transaction carries no outputs
	// of the token.
	ErrInvalidGenesis = errors.New("registry: genesis transaction does not create token")

	// ErrNilRecord indicates a nil record passed to a cache.
	ErrNilRecord = errors.New("registry: nil record")
)
