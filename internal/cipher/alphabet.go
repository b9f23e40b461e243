package cipher

import "fmt"

const (
	// DataSymbols is the number of symbols that carry 6 bits of payload.
	DataSymbols = 64

	// PadValue is the value reserved for the padding symbol. It is never
	// emitted by the encoder and never accepted as data by the decoder.
	PadValue = 64

	invalidSymbol = 0xFF
)

// DefaultSymbols is the pinned table: values 0-25 map to A-Z, 26-51 to a-z,
// 52-61 to 0-9, 62 to '+', 63 to '/' and the padding value 64 to '='.
const DefaultSymbols = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/="

// Alphabet is a bijection between the values 0..63 and printable ASCII
// symbols, plus one padding symbol. It is immutable once built.
type Alphabet struct {
	encode  [DataSymbols + 1]byte
	decode  [256]uint8
	symbols string
}

// StdAlphabet is the table used unless a codec is configured otherwise.
var StdAlphabet = mustAlphabet(DefaultSymbols)

// NewAlphabet builds an alphabet from 65 distinct printable ASCII symbols.
// The last symbol is the padding symbol.
func NewAlphabet(symbols string) (*Alphabet, error) {
	if len(symbols) != DataSymbols+1 {
		return nil, fmt.Errorf("alphabet must have %d symbols, got %d", DataSymbols+1, len(symbols))
	}
	a := &Alphabet{symbols: symbols}
	for i := range a.decode {
		a.decode[i] = invalidSymbol
	}
	seen := make(map[byte]int, len(symbols))
	for i := 0; i < len(symbols); i++ {
		c := symbols[i]
		if c <= ' ' || c > '~' {
			return nil, fmt.Errorf("alphabet symbol %q at index %d is not printable", c, i)
		}
		if prev, dup := seen[c]; dup {
			return nil, fmt.Errorf("alphabet symbol %q repeated at indexes %d and %d", c, prev, i)
		}
		seen[c] = i
		a.encode[i] = c
		if i < DataSymbols {
			a.decode[c] = uint8(i)
		}
	}
	return a, nil
}

func mustAlphabet(symbols string) *Alphabet {
	a, err := NewAlphabet(symbols)
	if err != nil {
		panic(err)
	}
	return a
}

// Symbol returns the printable symbol for a 6-bit value. Only the low six
// bits of v are used.
func (a *Alphabet) Symbol(v uint8) byte {
	return a.encode[v&0x3F]
}

// Pad returns the padding symbol.
func (a *Alphabet) Pad() byte {
	return a.encode[PadValue]
}

// Value returns the 6-bit value of a data symbol. It reports false for the
// padding symbol and for bytes outside the table.
func (a *Alphabet) Value(c byte) (uint8, bool) {
	v := a.decode[c]
	if v == invalidSymbol {
		return 0, false
	}
	return v, true
}

// Contains reports whether every byte of s is a data symbol.
func (a *Alphabet) Contains(s string) bool {
	for i := 0; i < len(s); i++ {
		if a.decode[s[i]] == invalidSymbol {
			return false
		}
	}
	return true
}

// String returns the 65 symbols in value order.
func (a *Alphabet) String() string {
	return a.symbols
}

// DataString returns only the 64 data symbols.
func (a *Alphabet) DataString() string {
	return a.symbols[:DataSymbols]
}
