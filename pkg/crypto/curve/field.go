// Package curve implements arithmetic over a small prime field and the
// elliptic curve point table used as key material by the derivation
// primitives.
//
// The field is deliberately tiny (263 elements in the default
// configuration). Nothing in this package is suitable for real-world
// cryptography; it exists so that every role computes bit-identical
// transcript values.
package curve

// Field is a prime field F_p.
type Field struct {
	p int
}

// NewField returns the field of integers modulo p.
// p must be a prime greater than 2.
func NewField(p int) Field {
	return Field{p: p}
}

// P returns the order of the field.
func (f Field) P() int {
	return f.p
}

// Elem reduces i into [0, p) and returns it as a field element.
// Negative inputs are normalised, so Elem(-1) == Elem(p-1).
func (f Field) Elem(i int) Element {
	v := i % f.p
	if v < 0 {
		v += f.p
	}
	return Element{v: v, p: f.p}
}

// Element is an element of a prime field.
// The zero value is not usable; obtain elements from Field.Elem.
type Element struct {
	v int
	p int
}

// Int returns the canonical integer representative in [0, p).
func (e Element) Int() int {
	return e.v
}

// IsZero reports whether e is the additive identity.
func (e Element) IsZero() bool {
	return e.v == 0
}

func (e Element) field() Field {
	return Field{p: e.p}
}

// Add returns e + o.
func (e Element) Add(o Element) Element {
	return e.field().Elem(e.v + o.v)
}

// Sub returns e - o.
func (e Element) Sub(o Element) Element {
	return e.field().Elem(e.v - o.v)
}

// Mul returns e * o.
func (e Element) Mul(o Element) Element {
	return e.field().Elem(e.v * o.v)
}

// Neg returns -e.
func (e Element) Neg() Element {
	return e.field().Elem(-e.v)
}

// Inverse returns the multiplicative inverse of e.
// Returns ErrNoInverse for the zero element.
func (e Element) Inverse() (Element, error) {
	z := invMod(e.v, e.p)
	if z == 0 {
		return Element{}, ErrNoInverse
	}
	return e.field().Elem(z), nil
}

// Div returns e / o, computed as e times the inverse of o.
// Division by zero yields zero.
func (e Element) Div(o Element) Element {
	return e.field().Elem(e.v * invMod(o.v, o.p))
}

// egcd is the extended Euclidean algorithm. It returns g = gcd(a, b)
// together with u, v such that a*u + b*v == g.
func egcd(a, b int) (g, u, v int) {
	u, v, g = 1, 0, a
	u1, v1, g1 := 0, 1, b
	for g1 != 0 {
		q := g / g1
		u, u1 = u1, u-q*u1
		v, v1 = v1, v-q*v1
		g, g1 = g1, g-q*g1
	}
	return g, u, v
}

// invMod solves x*z == 1 (mod n) for z. It returns 0 when x has no
// inverse modulo n. The result may be negative; callers reduce it.
func invMod(x, n int) int {
	x %= n
	if x < 0 {
		x += n
	}
	g, u, _ := egcd(x, n)
	if g != 1 {
		return 0
	}
	return u % n
}
