package catalog

import "errors"

// Domain-specific errors for catalog operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrItemNotFound is returned when the requested item does not exist.
	ErrItemNotFound = errors.New("catalog: item not found")

	// ErrUnreachable is returned when the catalog backend cannot be reached.
	ErrUnreachable = errors.New("catalog: backend unreachable")

	// ErrBadResponse is returned when the backend responds with an
	// unexpected status code or an undecodable body.
	ErrBadResponse = errors.New("catalog: unexpected response")
)
