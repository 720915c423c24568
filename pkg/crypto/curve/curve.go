package curve

import (
	"fmt"
	"sync"
)

// Reference curve parameters shared by every role.
const (
	DefaultPrime = 263
	DefaultA     = 16
	DefaultB     = 80
)

// Point is an affine point on a curve. The pair (0, 0) doubles as the
// additive identity; it is never a member of the point table for the
// default parameters.
type Point struct {
	X int
	Y int
}

// Identity is the additive identity.
var Identity = Point{}

// IsIdentity reports whether p is the additive identity.
func (p Point) IsIdentity() bool {
	return p.X == 0 && p.Y == 0
}

// String returns "(x, y)".
func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Curve is the elliptic curve y^2 = x^3 + a*x + b over F_p.
//
// The point table is built on first use and cached for the lifetime of
// the Curve; it is read-only afterwards and safe for concurrent use.
type Curve struct {
	field Field
	a     Element
	b     Element

	once   sync.Once
	points []Point
}

// New creates the curve y^2 = x^3 + a*x + b over F_p.
func New(p, a, b int) *Curve {
	f := NewField(p)
	return &Curve{
		field: f,
		a:     f.Elem(a),
		b:     f.Elem(b),
	}
}

// NewDefault creates a curve with the reference parameters
// (DefaultPrime, DefaultA, DefaultB).
func NewDefault() *Curve {
	return New(DefaultPrime, DefaultA, DefaultB)
}

// Field returns the field the curve is defined over.
func (c *Curve) Field() Field {
	return c.field
}

// A returns the a coefficient.
func (c *Curve) A() Element {
	return c.a
}

// B returns the b coefficient.
func (c *Curve) B() Element {
	return c.b
}

// String returns the curve equation in human readable form.
func (c *Curve) String() string {
	return fmt.Sprintf("y^2 mod %d = (x^3%+dx%+d) mod %d", c.field.P(), c.a.Int(), c.b.Int(), c.field.P())
}

// buildTable enumerates all points (n, m) with n^3 + a*n + b == m^2,
// in ascending n, then ascending m.
func (c *Curve) buildTable() {
	p := c.field.P()
	xVal := make([]int, p)
	yVal := make([]int, p)
	for n := 0; n < p; n++ {
		nsq := n * n
		xVal[n] = (n*nsq + c.a.Int()*n + c.b.Int()) % p
		yVal[n] = nsq % p
	}

	for n := 0; n < p; n++ {
		for m := 0; m < p; m++ {
			if xVal[n] == yVal[m] {
				c.points = append(c.points, Point{X: n, Y: m})
			}
		}
	}
}

func (c *Curve) table() []Point {
	c.once.Do(c.buildTable)
	return c.points
}

// Size returns the number of points in the table.
func (c *Curve) Size() int {
	return len(c.table())
}

// Point returns the i-th point of the table.
// It panics if i is outside [0, Size()).
func (c *Curve) Point(i int) Point {
	t := c.table()
	if i < 0 || i >= len(t) {
		panic(fmt.Sprintf("curve: point index %d out of range [0, %d)", i, len(t)))
	}
	return t[i]
}

// Points returns a copy of the point table.
func (c *Curve) Points() []Point {
	t := c.table()
	out := make([]Point, len(t))
	copy(out, t)
	return out
}

// Contains reports whether p satisfies the curve equation.
// The identity is not considered a curve point.
func (c *Curve) Contains(p Point) bool {
	f := c.field
	x, y := f.Elem(p.X), f.Elem(p.Y)
	lhs := y.Mul(y)
	rhs := x.Mul(x).Mul(x).Add(c.a.Mul(x)).Add(c.b)
	return lhs == rhs
}
