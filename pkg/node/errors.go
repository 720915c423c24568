package node

import "errors"

// Role errors.
var (
	// ErrInvalidConfig is returned when a role configuration fails validation.
	ErrInvalidConfig = errors.New("node: invalid configuration")

	// ErrNotRegistered is returned when an operation needs credentials the
	// role has not obtained yet.
	ErrNotRegistered = errors.New("node: not registered")

	// ErrNoUpstream is returned when no upstream address is configured and
	// none can be discovered.
	ErrNoUpstream = errors.New("node: no upstream address")

	// ErrUnexpectedReply is returned when an upstream reply is neither the
	// expected message nor a status literal.
	ErrUnexpectedReply = errors.New("node: unexpected reply")
)
