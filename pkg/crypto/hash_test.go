package crypto

import (
	"bytes"
	"testing"
)

// RFC 1321 appendix A.5 test suite.
var md5HexTestVectors = []struct {
	name     string
	message  string
	expected string
}{
	{"empty", "", "d41d8cd98f00b204e9800998ecf8427e"},
	{"a", "a", "0cc175b9c0f1b6a831c399e269772661"},
	{"abc", "abc", "900150983cd24fb0d6963f7d28e17f72"},
	{"message_digest", "message digest", "f96b697d7cb7938d525a2f31aaf161d0"},
	{"alphabet", "abcdefghijklmnopqrstuvwxyz", "c3fcd3d76192e4007dfb496cca67e13b"},
}

func TestHash(t *testing.T) {
	for _, tc := range md5HexTestVectors {
		t.Run(tc.name, func(t *testing.T) {
			got := Hash([]byte(tc.message))
			if string(got) != tc.expected {
				t.Errorf("Hash(%q) = %s, want %s", tc.message, got, tc.expected)
			}
			if len(got) != HashHexSize {
				t.Errorf("len = %d, want %d", len(got), HashHexSize)
			}
		})
	}
}

func TestHashConcat(t *testing.T) {
	parts := [][]byte{[]byte("Gateway"), []byte("NID"), nil, []byte("028734")}
	want := Hash([]byte("GatewayNID028734"))

	if got := HashConcat(parts...); !bytes.Equal(got, want) {
		t.Errorf("HashConcat = %s, want %s", got, want)
	}
	if got := HashConcat(); !bytes.Equal(got, Hash(nil)) {
		t.Errorf("HashConcat() = %s, want hash of empty input", got)
	}
}

func TestHashIsLowercaseASCII(t *testing.T) {
	for i := 0; i < 64; i++ {
		for _, c := range Hash([]byte{byte(i), byte(i * 7)}) {
			if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
				t.Fatalf("unexpected digest character %q", c)
			}
		}
	}
}
