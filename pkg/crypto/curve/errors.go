package curve

import "errors"

// Errors.
var (
	// ErrNoInverse is returned when inverting an element that has no
	// multiplicative inverse (zero).
	ErrNoInverse = errors.New("curve: element has no inverse")
)
