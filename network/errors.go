package network

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAllEndpointsUnavailable indicates every configured endpoint failed.
	// Callers should treat it as transient and retry after a delay.
	ErrAllEndpointsUnavailable = errors.New("network: all endpoints unavailable")

	// ErrNoEndpoints indicates a gateway configured without endpoints.
	ErrNoEndpoints = errors.New("network: no endpoints configured")

	// ErrEndpointUnreachable indicates no response was received because the
	// connection could not be established.
	ErrEndpointUnreachable = errors.New("network: endpoint unreachable")

	// ErrConnectionFailed indicates the connection broke after the request
	// may have been sent.
	ErrConnectionFailed = errors.New("network: connection failed")

	// ErrTimeout indicates the per-call deadline expired.
	ErrTimeout = errors.New("network: request timed out")

	// ErrNotFound indicates the indexer has no such transaction, token or address.
	ErrNotFound = errors.New("network: not found")

	// ErrBadRequest indicates the indexer refused the query as malformed.
	ErrBadRequest = errors.New("network: bad request")

	// ErrEndpointRefused indicates one endpoint declined to serve the
	// request (rate limiting, access control, request timeout). Another
	// endpoint may answer.
	ErrEndpointRefused = errors.New("network: endpoint refused request")

	// ErrBroadcastRejected indicates the node rejected the broadcast transaction.
	ErrBroadcastRejected = errors.New("network: broadcast rejected")

	// ErrInvalidResponse indicates the node returned a malformed or unexpected response.
	ErrInvalidResponse = errors.New("network: invalid response")

	// ErrDNSLookupFailed indicates endpoint discovery over DNS failed.
	ErrDNSLookupFailed = errors.New("network: DNS lookup failed")
)

// RejectError carries the node's reason for refusing a transaction.
type RejectError struct {
	Status  int
	Message string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", ErrBroadcastRejected, e.Status, e.Message)
}

// Unwrap lets errors.Is match ErrBroadcastRejected.
func (e *RejectError) Unwrap() error {
	return ErrBroadcastRejected
}

// IsTransient reports whether retrying later may succeed.
func IsTransient(err error) bool {
	return errors.Is(err, ErrAllEndpointsUnavailable) ||
		errors.Is(err, ErrEndpointUnreachable) ||
		errors.Is(err, ErrConnectionFailed) ||
		errors.Is(err, ErrEndpointRefused) ||
		errors.Is(err, ErrTimeout)
}

// Node reject reasons for inputs that no longer exist or conflict.
var missingInputReasons = []string{
	"missing inputs",
	"missingorspent",
	"txn-mempool-conflict",
	"input already spent",
}

// Node reject reasons for a transaction the node already has.
var alreadyKnownReasons = []string{
	"txn-already-known",
	"txn-already-in-mempool",
	"already have transaction",
	"transaction already in block chain",
}

// IsMissingInputs reports whether err is a rejection because an input was
// spent or does not exist.
func IsMissingInputs(err error) bool {
	return rejectMatches(err, missingInputReasons)
}

// IsAlreadyKnown reports whether err is a rejection because the node
// already has the transaction.
func IsAlreadyKnown(err error) bool {
	return rejectMatches(err, alreadyKnownReasons)
}

func rejectMatches(err error, reasons []string) bool {
	var rej *RejectError
	if !errors.As(err, &rej) {
		return false
	}
	msg := strings.ToLower(rej.Message)
	for _, r := range reasons {
		if strings.Contains(msg, r) {
			return true
		}
	}
	return false
}
