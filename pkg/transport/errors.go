package transport

import "errors"

// Listener lifecycle errors.
var (
	ErrClosed         = errors.New("transport: closed")
	ErrAlreadyStarted = errors.New("transport: already started")
	ErrNoHandler      = errors.New("transport: no request handler configured")
	ErrInvalidAddress = errors.New("transport: invalid address")
)

// Upstream failures, wrapped with the underlying network error. Callers map
// them to wire status codes.
var (
	ErrConnectFailed = errors.New("transport: unable to connect")
	ErrWriteFailed   = errors.New("transport: unable to write")
	ErrReadFailed    = errors.New("transport: unable to read")
)
