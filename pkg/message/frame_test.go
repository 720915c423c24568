package message

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"

	fuzz "github.com/trailofbits/go-fuzz-utils"
)

func TestFrameEncode(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		want  string
	}{
		{
			name:  "Registration request",
			frame: Frame{Tag: TagRegister, Fields: [][]byte{[]byte("GatewayNID028734"), []byte("abc")}},
			want:  "1R2F0ZXdheU5JRDAyODczNA==:YWJj",
		},
		{
			name:  "Single field",
			frame: Frame{Tag: TagRegister, Fields: [][]byte{[]byte("3735928559")}},
			want:  "1MzczNTkyODU1OQ==",
		},
		{
			name:  "Empty fields",
			frame: Frame{Tag: TagLogin, Fields: [][]byte{nil, nil, nil}},
			want:  "2::",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.frame.Encode(); string(got) != tc.want {
				t.Errorf("Encode() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	f, err := Parse([]byte("1R2F0ZXdheU5JRDAyODczNA==:YWJj"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if f.Tag != TagRegister {
		t.Errorf("Tag = %v, want %v", f.Tag, TagRegister)
	}
	if len(f.Fields) != 2 {
		t.Fatalf("len(Fields) = %d, want 2", len(f.Fields))
	}
	if string(f.Fields[0]) != "GatewayNID028734" || string(f.Fields[1]) != "abc" {
		t.Errorf("Fields = %q", f.Fields)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"Empty", "", ErrEmptyMessage},
		{"Unknown tag", "9YWJj", ErrWrongProtocol},
		{"Status literal", "WrongID", ErrWrongProtocol},
		{"Bad base64", "1YWJj:!!!!", ErrInvalidField},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.data)); !errors.Is(err, tc.wantErr) {
				t.Errorf("Parse(%q) error = %v, want %v", tc.data, err, tc.wantErr)
			}
		})
	}
}

func TestParseExpect(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		tag     Tag
		fields  int
		wantErr error
	}{
		{"Registration with 2 fields", "1YQ==:Yg==", TagRegister, 2, nil},
		{"Registration with 1 field", "1YQ==", TagRegister, 2, ErrInvalidNumberOfArguments},
		{"Registration with 3 fields", "1YQ==:Yg==:Yw==", TagRegister, 2, ErrInvalidNumberOfArguments},
		{"Bare tag", "1", TagRegister, 2, ErrInvalidNumberOfArguments},
		{"Other tag", "2YQ==:Yg==", TagRegister, 2, ErrUnexpectedTag},
		{"Unknown tag", "3YQ==:Yg==", TagRegister, 2, ErrWrongProtocol},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseExpect([]byte(tc.data), tc.tag, tc.fields)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("ParseExpect(%q) error = %v, want %v", tc.data, err, tc.wantErr)
			}
		})
	}
}

func TestTagString(t *testing.T) {
	if TagRegister.String() != "Register" || TagLogin.String() != "Login" || Tag('x').String() != "Unknown" {
		t.Error("unexpected Tag names")
	}
	if !IsTagged([]byte("2")) || IsTagged([]byte("WrongID")) || IsTagged(nil) {
		t.Error("IsTagged misclassified input")
	}
}

func TestStreamFraming(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	writer := NewStreamWriter(clientConn)
	reader := NewStreamReader(serverConn)

	msgs := [][]byte{
		[]byte("1YQ==:Yg=="),
		[]byte("WrongID"),
		bytes.Repeat([]byte{'A'}, 1000),
	}

	go func() {
		for _, msg := range msgs {
			if _, err := writer.Write(msg); err != nil {
				return
			}
		}
	}()

	for i, expected := range msgs {
		got, err := reader.Read()
		if err != nil {
			t.Fatalf("Message %d: Read() error: %v", i, err)
		}
		if !bytes.Equal(got, expected) {
			t.Errorf("Message %d: got %q, want %q", i, got, expected)
		}
	}
}

func TestEncodeWithLengthPrefix(t *testing.T) {
	prefixed := EncodeWithLengthPrefix([]byte("2abc"))

	want := []byte{0x04, 0x00, 0x00, 0x00, '2', 'a', 'b', 'c'}
	if !bytes.Equal(prefixed, want) {
		t.Errorf("EncodeWithLengthPrefix = %x, want %x", prefixed, want)
	}
}

func TestStreamErrors(t *testing.T) {
	t.Run("EOF on length read", func(t *testing.T) {
		r := NewStreamReader(bytes.NewReader(nil))
		if _, err := r.Read(); err != io.EOF {
			t.Errorf("Read() error = %v, want %v", err, io.EOF)
		}
	})

	t.Run("Zero length prefix", func(t *testing.T) {
		r := NewStreamReader(bytes.NewReader([]byte{0, 0, 0, 0}))
		if _, err := r.Read(); err != ErrInvalidLengthPrefix {
			t.Errorf("Read() error = %v, want %v", err, ErrInvalidLengthPrefix)
		}
	})

	t.Run("Oversized prefix", func(t *testing.T) {
		r := NewStreamReader(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0x00}))
		if _, err := r.Read(); err != ErrMessageTooLong {
			t.Errorf("Read() error = %v, want %v", err, ErrMessageTooLong)
		}
	})

	t.Run("Truncated message", func(t *testing.T) {
		r := NewStreamReader(bytes.NewReader([]byte{0x10, 0, 0, 0, '1', '2'}))
		if _, err := r.Read(); err != ErrStreamReadFailed {
			t.Errorf("Read() error = %v, want %v", err, ErrStreamReadFailed)
		}
	})

	t.Run("Writer rejects oversized message", func(t *testing.T) {
		var buf bytes.Buffer
		if _, err := NewStreamWriter(&buf).Write(make([]byte, MaxMessageSize+1)); err != ErrMessageTooLong {
			t.Errorf("Write() error = %v, want %v", err, ErrMessageTooLong)
		}
		if buf.Len() != 0 {
			t.Errorf("oversized write emitted %d bytes", buf.Len())
		}
	})
}

// FuzzFrameRoundtrip checks that any list of field values survives
// Encode followed by Parse.
func FuzzFrameRoundtrip(f *testing.F) {
	f.Add([]byte("seed corpus"))
	f.Add([]byte{0x03, 0x00, 0xff, ':', '1'})

	f.Fuzz(func(t *testing.T, data []byte) {
		tp, err := fuzz.NewTypeProvider(data)
		if err != nil {
			t.Skip(err)
		}

		count, err := tp.GetByte()
		if err != nil {
			t.Skip(err)
		}

		frame := Frame{Tag: TagLogin}
		for i := 0; i < int(count%8)+1; i++ {
			field, err := tp.GetBytes()
			if err != nil {
				t.Skip(err)
			}
			frame.Fields = append(frame.Fields, field)
		}

		got, err := Parse(frame.Encode())
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if got.Tag != frame.Tag || len(got.Fields) != len(frame.Fields) {
			t.Fatalf("shape mismatch: got %v/%d, want %v/%d", got.Tag, len(got.Fields), frame.Tag, len(frame.Fields))
		}
		for i := range frame.Fields {
			if !bytes.Equal(got.Fields[i], frame.Fields[i]) {
				t.Fatalf("field %d: got %x, want %x", i, got.Fields[i], frame.Fields[i])
			}
		}
	})
}

// FuzzParse checks that arbitrary input never panics.
func FuzzParse(f *testing.F) {
	f.Add([]byte("2YQ==:Yg==:Yw==:ZA=="))
	f.Add([]byte("ServerError:WrongID"))

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = Parse(data)
		_, _ = DecodeGatewayLoginReply(data)
		_ = ParseStatus(data)
	})
}
