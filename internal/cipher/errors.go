package cipher

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSymbol reports a byte that is not one of the 64 data symbols.
	ErrInvalidSymbol = errors.New("invalid symbol")

	// ErrInvalidLength reports an encoded length no input could produce.
	ErrInvalidLength = errors.New("invalid encoded length")

	// ErrNonCanonical reports trailing padding bits that are not zero.
	ErrNonCanonical = errors.New("non-canonical trailing bits")
)

// DecodeError is returned when an encoded message cannot be decoded.
type DecodeError struct {
	// Offset is the index in the encoded input where decoding failed.
	Offset int
	// Symbol is the offending byte for ErrInvalidSymbol and ErrNonCanonical.
	Symbol byte
	Err    error
}

func (e *DecodeError) Error() string {
	switch {
	case errors.Is(e.Err, ErrInvalidSymbol), errors.Is(e.Err, ErrNonCanonical):
		return fmt.Sprintf("ebh decode: %v %q at offset %d", e.Err, e.Symbol, e.Offset)
	default:
		return fmt.Sprintf("ebh decode: %v (%d symbols)", e.Err, e.Offset)
	}
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Reason returns a short label for metrics and API responses.
func (e *DecodeError) Reason() string {
	switch {
	case errors.Is(e.Err, ErrInvalidSymbol):
		return "invalid_symbol"
	case errors.Is(e.Err, ErrInvalidLength):
		return "invalid_length"
	case errors.Is(e.Err, ErrNonCanonical):
		return "non_canonical"
	default:
		return "unknown"
	}
}

// IsDecodeError reports whether err, or any error it wraps, is a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
