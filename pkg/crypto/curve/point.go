package curve

// Add returns p + q using the chord and tangent rule.
//
// The identity is handled first, then additive inverses; every other
// pair has a well defined slope.
func (c *Curve) Add(p, q Point) Point {
	if p.IsIdentity() {
		return q
	}
	if q.IsIdentity() {
		return p
	}

	f := c.field
	x1, y1 := f.Elem(p.X), f.Elem(p.Y)
	x2, y2 := f.Elem(q.X), f.Elem(q.Y)

	if x1 == x2 && y1 == y2.Neg() {
		return Identity
	}

	var s, xR Element
	if x1 == x2 && y1 == y2 {
		// 2P
		three := f.Elem(3)
		s = three.Mul(x1).Mul(x1).Add(c.a).Div(y1.Add(y1))
		xR = s.Mul(s).Sub(x1.Add(x1))
	} else {
		// P+Q
		s = y1.Sub(y2).Div(x1.Sub(x2))
		xR = s.Mul(s).Sub(x1).Sub(x2)
	}

	yR := y1.Neg().Add(s.Mul(x1.Sub(xR)))
	return Point{X: xR.Int(), Y: yR.Int()}
}

// Double returns p + p.
func (c *Curve) Double(p Point) Point {
	return c.Add(p, p)
}

// Neg returns the additive inverse of p.
func (c *Curve) Neg(p Point) Point {
	if p.IsIdentity() {
		return p
	}
	return Point{X: p.X, Y: c.field.Elem(-p.Y).Int()}
}

// ScalarMul returns |k| * p using binary double-and-add.
// The sign of k is ignored and k == 0 yields the identity.
func (c *Curve) ScalarMul(p Point, k int) Point {
	if k < 0 {
		k = -k
	}

	res := Identity
	acc := p
	for k != 0 {
		if k&1 == 1 {
			res = c.Add(res, acc)
		}
		k >>= 1
		if k != 0 {
			acc = c.Double(acc)
		}
	}
	return res
}
