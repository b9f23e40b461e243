package cipher

// EncodedLen returns the number of symbols produced for n input bytes,
// ceil(8n/6).
func EncodedLen(n int) int {
	return (n*8 + 5) / 6
}

// DecodedLen returns the number of bytes carried by n symbols, floor(6n/8).
// The result is only meaningful when n%4 != 1.
func DecodedLen(n int) int {
	return n * 6 / 8
}

// EncodeToString packs src into 6-bit groups, least significant bits first,
// and maps each group through the alphabet. A trailing partial group is
// zero-filled and only the symbols needed to carry the real bits are kept.
func (a *Alphabet) EncodeToString(src []byte) string {
	dst := make([]byte, 0, EncodedLen(len(src))+3)
	for si := 0; si < len(src); si += 3 {
		var s [3]byte
		copy(s[:], src[si:])
		dst = append(dst,
			a.Symbol(s[0]),
			a.Symbol(s[0]>>6|s[1]<<2),
			a.Symbol(s[1]>>4|s[2]<<4),
			a.Symbol(s[2]>>2),
		)
	}
	return string(dst[:EncodedLen(len(src))])
}

// DecodeString reverses EncodeToString. The output length is derived from
// the symbol count alone. Bits left over after the last whole byte must be
// zero, and a length of 4k+1 symbols is rejected since no input encodes to
// it.
func (a *Alphabet) DecodeString(s string) ([]byte, error) {
	n := len(s)
	if n%4 == 1 {
		return nil, &DecodeError{Offset: n, Err: ErrInvalidLength}
	}

	vals := make([]uint8, n+3)
	for i := 0; i < n; i++ {
		v, ok := a.Value(s[i])
		if !ok {
			return nil, &DecodeError{Offset: i, Symbol: s[i], Err: ErrInvalidSymbol}
		}
		vals[i] = v
	}

	// Unused high bits of the final symbol: 4 of them after 2 symbols, 2
	// after 3.
	switch n % 4 {
	case 2:
		if vals[n-1]>>2 != 0 {
			return nil, &DecodeError{Offset: n - 1, Symbol: s[n-1], Err: ErrNonCanonical}
		}
	case 3:
		if vals[n-1]>>4 != 0 {
			return nil, &DecodeError{Offset: n - 1, Symbol: s[n-1], Err: ErrNonCanonical}
		}
	}

	dst := make([]byte, 0, DecodedLen(n)+2)
	for vi := 0; vi < n; vi += 4 {
		v0, v1, v2, v3 := vals[vi], vals[vi+1], vals[vi+2], vals[vi+3]
		dst = append(dst,
			v0|v1<<6,
			v1>>2|v2<<4,
			v2>>4|v3<<2,
		)
	}
	return dst[:DecodedLen(n)], nil
}
