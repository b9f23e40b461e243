package cipher

import "math"

// cascadeKeys[h] is floor(2*pi*h) mod 256.
var cascadeKeys = func() (keys [256]byte) {
	for h := range keys {
		keys[h] = byte(int(math.Floor(2*math.Pi*float64(h))) & 0xFF)
	}
	return keys
}()

// CascadeKey returns the XOR key derived from a head byte.
func CascadeKey(head byte) byte {
	return cascadeKeys[head]
}

// Cascade applies the head-tail XOR cascade and returns the result in a new
// slice. Every byte is XORed with the keys of all plaintext bytes to its
// left; the first byte passes through unchanged.
//
// Encoding derives the running key from the input bytes. Decoding derives it
// from the bytes it has already recovered, so Cascade(Cascade(m, true), false)
// returns m.
func Cascade(msg []byte, encoding bool) []byte {
	out := make([]byte, len(msg))
	var acc byte
	for i, b := range msg {
		out[i] = b ^ acc
		if encoding {
			acc ^= cascadeKeys[b]
		} else {
			acc ^= cascadeKeys[out[i]]
		}
	}
	return out
}
