package crypto

import (
	"strconv"

	"github.com/backkem/triaka/pkg/crypto/curve"
)

// Basis point indices used by the handshake.
const (
	// BasisRegistration keys the verifier derivation during registration.
	BasisRegistration = 126

	// BasisEphemeral keys the ephemeral values wP and yP during login.
	BasisEphemeral = 256
)

// Deriver computes scalar derivations keyed by points of a curve table.
// It is safe for concurrent use.
type Deriver struct {
	curve *curve.Curve
}

// NewDeriver creates a Deriver over c. A nil curve selects the reference
// curve (curve.NewDefault).
func NewDeriver(c *curve.Curve) *Deriver {
	if c == nil {
		c = curve.NewDefault()
	}
	return &Deriver{curve: c}
}

// Curve returns the underlying curve.
func (d *Deriver) Curve() *curve.Curve {
	return d.curve
}

// ScalarDerive runs the keyed, order-dependent per-byte transform.
//
// Starting from point = table[basis], each input byte is read as a signed
// 8-bit integer c and produces (c*x mod p XOR c*y mod p) mod 255, written as
// decimal text. The running point is then replaced by c*point. Once the
// point reaches the identity every later byte yields "0".
//
// It panics if basis is not a valid table index.
func (d *Deriver) ScalarDerive(text []byte, basis int) []byte {
	c := d.curve
	f := c.Field()
	point := c.Point(basis)

	out := make([]byte, 0, 3*len(text))
	for _, b := range text {
		k := int(int8(b))
		c1 := f.Elem(k * point.X).Int()
		c2 := f.Elem(k * point.Y).Int()
		out = strconv.AppendInt(out, int64((c1^c2)%255), 10)
		point = c.ScalarMul(point, k)
	}
	return out
}
