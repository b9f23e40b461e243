package cipher

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegisteredOperations(t *testing.T) {
	for _, name := range []string{OpMask, OpCascadeEncode, OpCascadeDecode, OpBase64Encode, OpBase64Decode} {
		op, ok := GetOperation(name)
		if !ok {
			t.Fatalf("operation %s not registered", name)
		}
		if op.Description() == "" {
			t.Errorf("operation %s has no description", name)
		}
		rev, ok := op.Reverse()
		if !ok {
			t.Fatalf("operation %s has no reverse", name)
		}
		back, _ := rev.Reverse()
		if back.Name() != name {
			t.Errorf("reverse of reverse of %s is %s", name, back.Name())
		}
	}

	mask, _ := GetOperation(OpMask)
	if rev, _ := mask.Reverse(); rev.Name() != OpMask {
		t.Errorf("mask should be its own reverse, got %s", rev.Name())
	}
}

func TestMaskOperationParams(t *testing.T) {
	ctx := context.Background()
	op, _ := GetOperation(OpMask)
	msg := []byte("abcdefg")

	tests := []struct {
		name   string
		params map[string]interface{}
		want   []byte
	}{
		{"defaults", nil, ApplyMask(msg, DefaultMask, AlignHead)},
		{"hex string", map[string]interface{}{ParamMask: "0xCAFEF00D"}, ApplyMask(msg, 0xCAFEF00D, AlignHead)},
		{"json number", map[string]interface{}{ParamMask: float64(0xCAFEF00D)}, ApplyMask(msg, 0xCAFEF00D, AlignHead)},
		{"int", map[string]interface{}{ParamMask: 1}, ApplyMask(msg, 1, AlignHead)},
		{"uint32", map[string]interface{}{ParamMask: uint32(7)}, ApplyMask(msg, 7, AlignHead)},
		{"int64", map[string]interface{}{ParamMask: int64(9)}, ApplyMask(msg, 9, AlignHead)},
		{"uint64", map[string]interface{}{ParamMask: uint64(11)}, ApplyMask(msg, 11, AlignHead)},
		{"tail", map[string]interface{}{ParamAlignment: "tail"}, ApplyMask(msg, DefaultMask, AlignTail)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := op.Execute(ctx, msg, tt.params)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMaskOperationRejectsBadParams(t *testing.T) {
	ctx := context.Background()
	op, _ := GetOperation(OpMask)

	bad := []map[string]interface{}{
		{ParamMask: -1},
		{ParamMask: int64(1) << 40},
		{ParamMask: uint64(1) << 33},
		{ParamMask: 1.5},
		{ParamMask: "zzz"},
		{ParamMask: true},
		{ParamAlignment: 3},
		{ParamAlignment: "sideways"},
	}
	for _, params := range bad {
		if _, err := op.Execute(ctx, []byte("abcdefg"), params); err == nil {
			t.Errorf("expected error for params %v", params)
		}
	}
}

func TestCascadeOperations(t *testing.T) {
	ctx := context.Background()
	enc, _ := GetOperation(OpCascadeEncode)
	dec, _ := GetOperation(OpCascadeDecode)

	in := []byte("Four score and seven years ago...")
	mid, err := enc.Execute(ctx, in, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !cmp.Equal(mid, Cascade(in, true)) {
		t.Errorf("encode op differs from Cascade")
	}
	out, err := dec.Execute(ctx, mid, nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestBase64Operations(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Man", "Man", "NFmb"},
		{"hello", "hello", "oVGbs9G"},
		{"empty string", "", ""},
		{"unicode", "Hello 世界", "IVGbs9GIkjrlnXJj"},
	}

	ctx := context.Background()
	encoder, _ := GetOperation(OpBase64Encode)
	decoder, _ := GetOperation(OpBase64Decode)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := encoder.Execute(ctx, []byte(tt.input), nil)
			if err != nil {
				t.Fatalf("encode failed: %v", err)
			}
			if string(encoded) != tt.expected {
				t.Errorf("encode: expected %q, got %q", tt.expected, string(encoded))
			}

			decoded, err := decoder.Execute(ctx, encoded, nil)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if string(decoded) != tt.input {
				t.Errorf("decode: expected %q, got %q", tt.input, string(decoded))
			}
		})
	}
}

func TestBase64DecodeOperationErrors(t *testing.T) {
	decoder, _ := GetOperation(OpBase64Decode)
	for _, in := range []string{"SGVsbG8=", "h", "hP"} {
		if _, err := decoder.Execute(context.Background(), []byte(in), nil); !IsDecodeError(err) {
			t.Errorf("decode %q: expected DecodeError, got %v", in, err)
		}
	}
}
