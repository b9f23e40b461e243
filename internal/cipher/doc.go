// Package cipher implements ebh, a reversible three-stage obfuscation of
// text messages into printable strings.
//
// # Overview
//
// Encoding applies three stages in order:
//   - Partial mask: XOR the interior of the message with a 32-bit mask,
//     leaving len%4 bytes on the left and 4-len%4 bytes on the right untouched.
//   - Head-tail cascade: XOR every byte with keys floor(2*pi*h) mod 256
//     derived from each plaintext byte h to its left.
//   - Base64: pack the bytes into 6-bit groups, least significant bits first,
//     over the alphabet A-Z a-z 0-9 + /, without padding.
//
// Decoding runs the inverse stages in reverse order. None of this is
// encryption. The transform is trivially reversible by anyone who has read
// this comment.
//
// # Quick Start
//
//	out := cipher.EncodeMessage("Hello, World!")
//	msg, err := cipher.DecodeMessage(out)
//
// A codec with other settings:
//
//	codec, _ := cipher.NewCodec(cipher.WithMask(0xCAFEF00D), cipher.WithAlignment(cipher.AlignTail))
//	out := codec.Encode("Hello, World!")
//
// AlignTail reproduces the vectors of legacy ebh releases:
//
//	"Hello, World!" -> "IlND9Q3fW0XScQk6bD"
//
// # Operations
//
// Each stage is also registered as an Operation so it can be chained in a
// Pipeline:
//
//   - ebh_mask - partial mask (self-inverse), params "mask" and "alignment"
//   - ebh_cascade_encode/decode - head-tail cascade
//   - ebh_base64_encode/decode - unpadded ebh base64
//
// For example:
//
//	p := cipher.EncodePipeline(cipher.DefaultMask, cipher.AlignHead)
//	encoded, _ := p.Execute(ctx, []byte("test"))
//	rev, _ := p.Reverse()
//	decoded, _ := rev.Execute(ctx, encoded)
//
// # Errors
//
// Only decoding fails. Failures are *DecodeError wrapping ErrInvalidSymbol,
// ErrInvalidLength or ErrNonCanonical.
//
// # Thread Safety
//
// Codec, Alphabet and the key tables are immutable after construction. The
// operation registry is guarded by a read-write mutex.
package cipher
