// Package message implements the wire format of the handshake.
//
// A message is one ASCII digit tag followed by ':'-separated fields, each
// field base64 encoded (standard alphabet). Replies that are not tagged
// carry a literal status string instead (see Status).
//
// On the stream every message is framed with a 4-byte little-endian length
// prefix so a receiver knows when the single request of a connection is
// complete.
package message

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"io"
)

// Tag is the leading byte identifying the procedure of a message.
type Tag byte

const (
	// TagRegister marks registration requests and replies.
	TagRegister Tag = '1'

	// TagLogin marks every hop of the login procedure.
	TagLogin Tag = '2'
)

// String returns a human-readable name for the tag.
func (t Tag) String() string {
	switch t {
	case TagRegister:
		return "Register"
	case TagLogin:
		return "Login"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the tag is a defined value.
func (t Tag) IsValid() bool {
	return t == TagRegister || t == TagLogin
}

// Frame is a decoded message: its tag and the decoded field values.
type Frame struct {
	Tag    Tag
	Fields [][]byte
}

// Encode serializes the frame: tag, then base64 fields joined by ':'.
func (f *Frame) Encode() []byte {
	size := 1
	for _, field := range f.Fields {
		size += base64.StdEncoding.EncodedLen(len(field)) + 1
	}

	buf := make([]byte, 0, size)
	buf = append(buf, byte(f.Tag))
	for i, field := range f.Fields {
		if i > 0 {
			buf = append(buf, FieldSeparator)
		}
		enc := make([]byte, base64.StdEncoding.EncodedLen(len(field)))
		base64.StdEncoding.Encode(enc, field)
		buf = append(buf, enc...)
	}
	return buf
}

// Parse decodes a raw message. The field count is not checked here; use
// ParseExpect when the expected shape is known.
//
// An empty body after the tag yields one empty field, so a bare tag never
// matches a shape that needs two or more fields.
func Parse(data []byte) (*Frame, error) {
	if len(data) == 0 {
		return nil, ErrEmptyMessage
	}

	tag := Tag(data[0])
	if !tag.IsValid() {
		return nil, ErrWrongProtocol
	}

	parts := bytes.Split(data[1:], []byte{FieldSeparator})
	f := &Frame{Tag: tag, Fields: make([][]byte, len(parts))}
	for i, part := range parts {
		var field []byte
		if n := base64.StdEncoding.DecodedLen(len(part)); n > 0 {
			field = make([]byte, n)
		}
		n, err := base64.StdEncoding.Decode(field, part)
		field = field[:n]
		if err != nil {
			return nil, ErrInvalidField
		}
		f.Fields[i] = field
	}
	return f, nil
}

// ParseExpect decodes a raw message and checks its tag and field count.
// A well-formed message of another known tag returns ErrUnexpectedTag.
func ParseExpect(data []byte, tag Tag, fields int) (*Frame, error) {
	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if f.Tag != tag {
		return nil, ErrUnexpectedTag
	}
	if len(f.Fields) != fields {
		return nil, ErrInvalidNumberOfArguments
	}
	return f, nil
}

// IsTagged reports whether data starts with a known tag byte. Replies that
// are not tagged are status literals.
func IsTagged(data []byte) bool {
	return len(data) > 0 && Tag(data[0]).IsValid()
}

// StreamWriter wraps an io.Writer to add length-prefix framing.
type StreamWriter struct {
	w io.Writer
}

// NewStreamWriter creates a new stream writer.
func NewStreamWriter(w io.Writer) *StreamWriter {
	return &StreamWriter{w: w}
}

// Write writes a message with a 4-byte little-endian length prefix.
func (sw *StreamWriter) Write(msg []byte) (int, error) {
	if len(msg) > MaxMessageSize {
		return 0, ErrMessageTooLong
	}
	return sw.w.Write(EncodeWithLengthPrefix(msg))
}

// StreamReader wraps an io.Reader to read length-prefixed messages.
type StreamReader struct {
	r io.Reader
}

// NewStreamReader creates a new stream reader.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{r: r}
}

// Read reads a length-prefixed message from the stream.
// Returns the message without the length prefix.
func (sr *StreamReader) Read() ([]byte, error) {
	var lenBuf [LengthPrefixSize]byte
	if _, err := io.ReadFull(sr.r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, ErrStreamReadFailed
	}

	msgLen := binary.LittleEndian.Uint32(lenBuf[:])
	if msgLen == 0 {
		return nil, ErrInvalidLengthPrefix
	}
	if msgLen > MaxMessageSize {
		return nil, ErrMessageTooLong
	}

	msg := make([]byte, msgLen)
	if _, err := io.ReadFull(sr.r, msg); err != nil {
		return nil, ErrStreamReadFailed
	}
	return msg, nil
}

// EncodeWithLengthPrefix adds a 4-byte length prefix to msg.
func EncodeWithLengthPrefix(msg []byte) []byte {
	buf := make([]byte, LengthPrefixSize+len(msg))
	binary.LittleEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(msg)))
	copy(buf[LengthPrefixSize:], msg)
	return buf
}
