package cipher

import (
	"context"
	"fmt"
	"math"
)

// Registered operation names.
const (
	OpMask          = "ebh_mask"
	OpCascadeEncode = "ebh_cascade_encode"
	OpCascadeDecode = "ebh_cascade_decode"
	OpBase64Encode  = "ebh_base64_encode"
	OpBase64Decode  = "ebh_base64_decode"
)

// Parameter keys understood by OpMask.
const (
	ParamMask      = "mask"
	ParamAlignment = "alignment"
)

// MaskOp applies the partial mask stage. It is its own reverse.
type MaskOp struct {
	BaseOperation
}

func (op *MaskOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	mask, err := maskParam(params)
	if err != nil {
		return nil, err
	}
	align := AlignHead
	if raw, ok := params[ParamAlignment]; ok {
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("parameter %s must be a string, got %T", ParamAlignment, raw)
		}
		if align, err = ParseAlignment(s); err != nil {
			return nil, err
		}
	}
	return ApplyMask(input, mask, align), nil
}

// maskParam accepts the forms a mask takes after JSON or YAML decoding.
func maskParam(params map[string]interface{}) (uint32, error) {
	raw, ok := params[ParamMask]
	if !ok || raw == nil {
		return DefaultMask, nil
	}
	switch v := raw.(type) {
	case uint32:
		return v, nil
	case int:
		if v < 0 || int64(v) > math.MaxUint32 {
			return 0, fmt.Errorf("mask %d out of range", v)
		}
		return uint32(v), nil
	case int64:
		if v < 0 || v > math.MaxUint32 {
			return 0, fmt.Errorf("mask %d out of range", v)
		}
		return uint32(v), nil
	case uint64:
		if v > math.MaxUint32 {
			return 0, fmt.Errorf("mask %d out of range", v)
		}
		return uint32(v), nil
	case float64:
		if v < 0 || v > math.MaxUint32 || v != math.Trunc(v) {
			return 0, fmt.Errorf("mask %v is not a 32-bit integer", v)
		}
		return uint32(v), nil
	case string:
		return ParseMask(v)
	default:
		return 0, fmt.Errorf("parameter %s has unsupported type %T", ParamMask, raw)
	}
}

// CascadeOp applies the head-tail cascade in one direction.
type CascadeOp struct {
	BaseOperation
	encoding bool
}

func (op *CascadeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return Cascade(input, op.encoding), nil
}

// Base64EncodeOp encodes data with StdAlphabet
type Base64EncodeOp struct {
	BaseOperation
}

func (op *Base64EncodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return []byte(StdAlphabet.EncodeToString(input)), nil
}

// Base64DecodeOp decodes data produced by Base64EncodeOp
type Base64DecodeOp struct {
	BaseOperation
}

func (op *Base64DecodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return StdAlphabet.DecodeString(string(input))
}

func init() {
	mask := &MaskOp{
		BaseOperation: BaseOperation{
			NameValue:        OpMask,
			TypeValue:        OperationTypeMask,
			DescriptionValue: "XOR the message interior with a 32-bit mask (self-inverse)",
		},
	}
	mask.ReverseOp = mask

	cascadeEncode := &CascadeOp{
		BaseOperation: BaseOperation{
			NameValue:        OpCascadeEncode,
			TypeValue:        OperationTypeEncode,
			DescriptionValue: "XOR every byte with keys derived from the bytes before it",
		},
		encoding: true,
	}
	cascadeDecode := &CascadeOp{
		BaseOperation: BaseOperation{
			NameValue:        OpCascadeDecode,
			TypeValue:        OperationTypeDecode,
			DescriptionValue: "Undo the head-tail XOR cascade",
		},
	}
	cascadeEncode.ReverseOp = cascadeDecode
	cascadeDecode.ReverseOp = cascadeEncode

	base64Encode := &Base64EncodeOp{
		BaseOperation: BaseOperation{
			NameValue:        OpBase64Encode,
			TypeValue:        OperationTypeEncode,
			DescriptionValue: "Pack bytes into unpadded ebh base64 symbols",
		},
	}
	base64Decode := &Base64DecodeOp{
		BaseOperation: BaseOperation{
			NameValue:        OpBase64Decode,
			TypeValue:        OperationTypeDecode,
			DescriptionValue: "Unpack ebh base64 symbols into bytes",
		},
	}
	base64Encode.ReverseOp = base64Decode
	base64Decode.ReverseOp = base64Encode

	mustRegister(mask, cascadeEncode, cascadeDecode, base64Encode, base64Decode)
}
