package message

import "errors"

// Message layer errors.
var (
	// Frame errors
	ErrEmptyMessage             = errors.New("message: empty message")
	ErrWrongProtocol            = errors.New("message: unknown tag")
	ErrInvalidNumberOfArguments = errors.New("message: wrong number of fields for tag")
	ErrInvalidField             = errors.New("message: field is not valid base64")
	ErrUnexpectedTag            = errors.New("message: unexpected tag")

	// Stream errors
	ErrMessageTooLong      = errors.New("message: exceeds maximum size")
	ErrStreamReadFailed    = errors.New("message: failed to read from stream")
	ErrInvalidLengthPrefix = errors.New("message: invalid length prefix")
)

// Wire format constants.
const (
	// FieldSeparator separates base64 fields after the tag byte.
	FieldSeparator = ':'

	// LengthPrefixSize is the size of the stream length prefix.
	LengthPrefixSize = 4

	// MaxMessageSize bounds a single framed message on the stream.
	MaxMessageSize = 64 * 1024
)
