package crypto

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the length of every key in SessionKeys.
const KeySize = 16

var sessionKeysLabel = []byte("SessionKeys")

// ErrEmptySessionKey is returned when there is no session key to expand.
var ErrEmptySessionKey = errors.New("kdf: empty session key")

// SessionKeys are the symmetric keys a login hands to its caller.
type SessionKeys struct {
	Initiator [KeySize]byte // traffic sent by the Client
	Responder [KeySize]byte // traffic sent toward the Client
	Binding   [KeySize]byte // channel binding value
}

// HKDFSHA256 runs RFC 5869 extract-and-expand and returns n bytes.
func HKDFSHA256(secret, salt, info []byte, n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, info), out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeriveSessionKeys expands a handshake session key sk (its hex text as
// agreed on the wire):
//
//	Initiator || Responder || Binding = HKDF-SHA256(sk, nil, "SessionKeys", 48)
func DeriveSessionKeys(sk []byte) (*SessionKeys, error) {
	if len(sk) == 0 {
		return nil, ErrEmptySessionKey
	}
	okm, err := HKDFSHA256(sk, nil, sessionKeysLabel, 3*KeySize)
	if err != nil {
		return nil, err
	}
	var k SessionKeys
	copy(k.Initiator[:], okm)
	copy(k.Responder[:], okm[KeySize:])
	copy(k.Binding[:], okm[2*KeySize:])
	return &k, nil
}
