package message

import (
	"bytes"
	"errors"
	"fmt"
)

// Status is a literal reply sent instead of a tagged message when an
// exchange is aborted. Status literals are plain ASCII, not base64.
type Status string

// Status literals.
const (
	StatusInvalidNumberOfArguments Status = "InvalidNumberOfArguments"
	StatusWrongProtocol            Status = "WrongProtocol"
	StatusAddressNotRegistered     Status = "IpAddressNotRegistered"
	StatusUnableToContactServer    Status = "UnableToContactServer"
	StatusUnableToReadServer       Status = "UnableToReadServer"
	StatusServerProtocolError      Status = "ServerProtocolError"
	StatusWrongID                  Status = "WrongID"

	// StatusServerError prefixes the raw bytes an upstream peer answered
	// with when that answer was not a tagged message.
	StatusServerError Status = "ServerError:"
)

// Encode returns the wire form of the status.
func (s Status) Encode() []byte {
	return []byte(s)
}

// ServerError builds the wire form of StatusServerError carrying the
// upstream reply verbatim.
func ServerError(upstream []byte) []byte {
	out := make([]byte, 0, len(StatusServerError)+len(upstream))
	out = append(out, StatusServerError...)
	return append(out, upstream...)
}

// StatusError is a status literal received from a peer.
type StatusError struct {
	Status Status

	// Detail holds the bytes that followed StatusServerError. It is empty
	// for the other literals.
	Detail []byte
}

// Error implements error.
func (e *StatusError) Error() string {
	if len(e.Detail) > 0 {
		return fmt.Sprintf("peer replied %s%q", e.Status, e.Detail)
	}
	return fmt.Sprintf("peer replied %s", e.Status)
}

// ParseStatus interprets an untagged reply as a status literal. Unknown
// text is kept verbatim as the Status.
func ParseStatus(data []byte) *StatusError {
	if rest, ok := bytes.CutPrefix(data, []byte(StatusServerError)); ok {
		return &StatusError{Status: StatusServerError, Detail: append([]byte(nil), rest...)}
	}
	return &StatusError{Status: Status(data)}
}

// StatusFor maps a parse error to the literal reported to the sender.
// The second result is false for errors outside the message layer.
func StatusFor(err error) (Status, bool) {
	switch {
	case errors.Is(err, ErrWrongProtocol), errors.Is(err, ErrEmptyMessage):
		return StatusWrongProtocol, true
	case errors.Is(err, ErrInvalidNumberOfArguments), errors.Is(err, ErrInvalidField):
		return StatusInvalidNumberOfArguments, true
	case errors.Is(err, ErrUnexpectedTag):
		return StatusWrongProtocol, true
	default:
		return "", false
	}
}
