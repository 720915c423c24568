package crypto

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"io"
	"strconv"
	"sync"
)

// Errors for nonce operations.
var (
	ErrNoncesExhausted = errors.New("nonce: fixed nonce sequence exhausted")
)

// NonceSource produces fresh nonces: the decimal text of a 32-bit value.
type NonceSource interface {
	Nonce() ([]byte, error)
}

// RandomNonces draws nonces from a random source.
type RandomNonces struct {
	// Reader is the entropy source. If nil, crypto/rand.Reader is used.
	Reader io.Reader
}

// Nonce returns the decimal text of a random uint32.
func (r RandomNonces) Nonce() ([]byte, error) {
	src := r.Reader
	if src == nil {
		src = rand.Reader
	}

	var buf [4]byte
	if _, err := io.ReadFull(src, buf[:]); err != nil {
		return nil, err
	}
	return strconv.AppendUint(nil, uint64(binary.BigEndian.Uint32(buf[:])), 10), nil
}

// FixedNonces replays a scripted sequence of values. It is meant for
// scenario fixtures where every role must draw known nonces.
type FixedNonces struct {
	mu     sync.Mutex
	values []uint32
}

// NewFixedNonces creates a source returning values in order.
func NewFixedNonces(values ...uint32) *FixedNonces {
	return &FixedNonces{values: append([]uint32(nil), values...)}
}

// Nonce returns the next scripted value, or ErrNoncesExhausted.
func (f *FixedNonces) Nonce() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.values) == 0 {
		return nil, ErrNoncesExhausted
	}
	v := f.values[0]
	f.values = f.values[1:]
	return strconv.AppendUint(nil, uint64(v), 10), nil
}

// Remaining returns the number of unused values.
func (f *FixedNonces) Remaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.values)
}
