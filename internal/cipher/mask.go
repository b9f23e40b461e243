package cipher

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultMask is the 32-bit mask applied by the partial mask stage.
const DefaultMask uint32 = 0x12345678

// Alignment selects which end of the interior region the mask cycle is
// phased against.
type Alignment int

const (
	// AlignHead gives the first interior byte m0.
	AlignHead Alignment = iota
	// AlignTail gives the last interior byte m3. This is the phase used by
	// legacy ebh releases and reproduces their published vectors.
	AlignTail
)

func (a Alignment) String() string {
	switch a {
	case AlignHead:
		return "head"
	case AlignTail:
		return "tail"
	default:
		return "alignment(" + strconv.Itoa(int(a)) + ")"
	}
}

// ParseAlignment accepts "head" or "tail". "legacy" is an alias for "tail".
func ParseAlignment(s string) (Alignment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "head":
		return AlignHead, nil
	case "tail", "legacy":
		return AlignTail, nil
	default:
		return AlignHead, fmt.Errorf("unknown mask alignment %q (head|tail)", s)
	}
}

// ParseMask parses a mask written as hex ("0x12345678"), octal or decimal.
func ParseMask(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid mask %q: %w", s, err)
	}
	return uint32(v), nil
}

// maskBytes splits the mask most-significant byte first.
func maskBytes(mask uint32) [4]byte {
	return [4]byte{byte(mask >> 24), byte(mask >> 16), byte(mask >> 8), byte(mask)}
}

// maskBounds returns the half-open interior range [start, stop) that gets
// masked. len%4 bytes on the left are untouched and 4-len%4 on the right,
// which is 4 when the length is a multiple of 4.
func maskBounds(n int) (start, stop int) {
	pad := n % 4
	return pad, n - (4 - pad)
}

// ApplyMask XORs the interior of msg with the mask bytes and returns the
// result in a new slice. Applying it twice with the same mask and alignment
// restores the input.
func ApplyMask(msg []byte, mask uint32, align Alignment) []byte {
	out := make([]byte, len(msg))
	copy(out, msg)

	start, stop := maskBounds(len(out))
	if stop <= start {
		return out
	}

	m := maskBytes(mask)
	phase := 0
	if align == AlignTail {
		phase = (4 - start) % 4
	}
	for i := start; i < stop; i++ {
		out[i] ^= m[(i-start+phase)%4]
	}
	return out
}
