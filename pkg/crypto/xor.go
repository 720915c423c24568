package crypto

// XORBytes returns the byte-wise XOR of a and b, treating the shorter
// operand as zero-padded on the right.
//
// Output bytes whose signed 8-bit value is <= 0 (0x00 and 0x80-0xFF) are
// not emitted directly. They form a zero run that is written out as 0x00
// bytes only once a positive byte follows. A run at the very end of the
// output is dropped, so the result can be shorter than max(len(a), len(b)).
//
// This is not a true XOR. XORBytes(XORBytes(a, b), b) == a holds only when
// every intermediate byte is 7-bit and a has no trailing zero bytes; all
// transcript values (hex digests, decimal nonces and derived decimal text)
// satisfy this.
func XORBytes(a, b []byte) []byte {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}

	out := make([]byte, 0, n)
	zeros := 0
	for i := 0; i < n; i++ {
		var ca, cb byte
		if i < len(a) {
			ca = a[i]
		}
		if i < len(b) {
			cb = b[i]
		}

		v := ca ^ cb
		if int8(v) <= 0 {
			zeros++
			continue
		}
		for ; zeros > 0; zeros-- {
			out = append(out, 0)
		}
		out = append(out, v)
	}
	return out
}
