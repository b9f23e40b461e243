package cipher

import "errors"

// Codec runs the three stages in order: partial mask, head-tail cascade and
// the base64 codec. It holds no mutable state and is safe for concurrent
// use.
type Codec struct {
	mask     uint32
	align    Alignment
	alphabet *Alphabet
}

// Option configures a Codec.
type Option func(*Codec) error

// WithMask overrides DefaultMask.
func WithMask(mask uint32) Option {
	return func(c *Codec) error {
		c.mask = mask
		return nil
	}
}

// WithAlignment selects the mask phase.
func WithAlignment(align Alignment) Option {
	return func(c *Codec) error {
		if align != AlignHead && align != AlignTail {
			return errors.New("unknown mask alignment")
		}
		c.align = align
		return nil
	}
}

// WithAlphabet replaces StdAlphabet.
func WithAlphabet(a *Alphabet) Option {
	return func(c *Codec) error {
		if a == nil {
			return errors.New("alphabet cannot be nil")
		}
		c.alphabet = a
		return nil
	}
}

// NewCodec returns a codec using DefaultMask, AlignHead and StdAlphabet
// unless overridden.
func NewCodec(opts ...Option) (*Codec, error) {
	c := &Codec{mask: DefaultMask, align: AlignHead, alphabet: StdAlphabet}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNewCodec is NewCodec for static configurations.
func MustNewCodec(opts ...Option) *Codec {
	c, err := NewCodec(opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Codec) Mask() uint32         { return c.mask }
func (c *Codec) Alignment() Alignment { return c.align }
func (c *Codec) Alphabet() *Alphabet  { return c.alphabet }

// EncodeBytes masks, cascades and encodes msg.
func (c *Codec) EncodeBytes(msg []byte) string {
	masked := ApplyMask(msg, c.mask, c.align)
	return c.alphabet.EncodeToString(Cascade(masked, true))
}

// DecodeBytes reverses EncodeBytes. Only the base64 stage can fail, and it
// fails before any other stage runs.
func (c *Codec) DecodeBytes(s string) ([]byte, error) {
	raw, err := c.alphabet.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return ApplyMask(Cascade(raw, false), c.mask, c.align), nil
}

// Encode obfuscates a message. It never fails.
func (c *Codec) Encode(msg string) string {
	return c.EncodeBytes([]byte(msg))
}

// Decode recovers a message produced by Encode with the same settings.
// Errors are *DecodeError.
func (c *Codec) Decode(s string) (string, error) {
	b, err := c.DecodeBytes(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var defaultCodec = MustNewCodec()

// EncodeMessage encodes with the default mask and alignment.
func EncodeMessage(msg string) string {
	return defaultCodec.Encode(msg)
}

// DecodeMessage decodes with the default mask and alignment.
func DecodeMessage(s string) (string, error) {
	return defaultCodec.Decode(s)
}
