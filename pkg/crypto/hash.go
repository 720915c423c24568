// Package crypto provides the derivation primitives shared by every role of
// the handshake: a hex-rendered digest, a zero-run XOR and a curve-keyed
// scalar derivation, plus nonce generation and session key expansion.
//
// Every primitive works on byte strings. The output of Hash is the hex TEXT
// of the digest, and that text (not the raw digest) is what the protocol
// concatenates and XORs next. Implementations that exchange transcript
// values must preserve this re-encoding at every step.
package crypto

import (
	"crypto/md5"
	"encoding/hex"
)

// HashHexSize is the length of a rendered digest (MD5, 16 bytes as hex).
const HashHexSize = 2 * md5.Size

// Hash computes the MD5 digest of message rendered as lowercase hex text.
func Hash(message []byte) []byte {
	sum := md5.Sum(message)
	out := make([]byte, HashHexSize)
	hex.Encode(out, sum[:])
	return out
}

// HashConcat returns Hash(parts[0] || parts[1] || ...).
func HashConcat(parts ...[]byte) []byte {
	h := md5.New()
	for _, p := range parts {
		h.Write(p)
	}
	out := make([]byte, HashHexSize)
	hex.Encode(out, h.Sum(nil))
	return out
}
