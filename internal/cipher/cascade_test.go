package cipher

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// cascadeRecursive is the head-tail definition written as recursion over the
// tail: encoding transforms the tail first and then XORs it with the head's
// key, decoding XORs first and then recurses.
func cascadeRecursive(s []byte, encoding bool) []byte {
	if len(s) == 0 {
		return []byte{}
	}
	k := byte(int(2*math.Pi*float64(s[0])) % 256)
	tail := append([]byte(nil), s[1:]...)
	if encoding {
		tail = cascadeRecursive(tail, true)
		for i := range tail {
			tail[i] ^= k
		}
	} else {
		for i := range tail {
			tail[i] ^= k
		}
		tail = cascadeRecursive(tail, false)
	}
	return append([]byte{s[0]}, tail...)
}

func TestCascadeKeys(t *testing.T) {
	tests := []struct {
		head byte
		want byte
	}{
		{0, 0},
		{1, 6},
		{2, 12},
		{3, 18},
		{4, 25},
		{'e', 122},
		{'h', 141},
		{255, 66},
	}
	for _, tt := range tests {
		if got := CascadeKey(tt.head); got != tt.want {
			t.Errorf("CascadeKey(%d) = %d, want %d", tt.head, got, tt.want)
		}
	}
}

func TestCascadeMatchesRecursiveDefinition(t *testing.T) {
	inputs := [][]byte{
		{},
		{0x42},
		[]byte("hello"),
		[]byte("the divergence of the curl is zero."),
		{0x00, 0xFF, 0x80, 0x7F, 0x01},
	}
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(255 - i)
	}
	inputs = append(inputs, all)

	for _, in := range inputs {
		for _, encoding := range []bool{true, false} {
			want := cascadeRecursive(in, encoding)
			got := Cascade(in, encoding)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Cascade(%q, %v) mismatch (-recursive +iterative):\n%s", in, encoding, diff)
			}
		}
	}
}

func TestCascadeInverse(t *testing.T) {
	msg := make([]byte, 4096)
	for i := range msg {
		msg[i] = byte(i * 131)
	}
	enc := Cascade(msg, true)
	if diff := cmp.Diff(msg, Cascade(enc, false)); diff != "" {
		t.Fatalf("decode(encode(m)) mismatch:\n%s", diff)
	}
	if enc[0] != msg[0] {
		t.Errorf("head byte changed: %#x -> %#x", msg[0], enc[0])
	}
}

func TestCascadeVector(t *testing.T) {
	got := Cascade([]byte("hello"), true)
	want := []byte{0x68, 0xe8, 0x9b, 0x3d, 0x98}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Cascade(hello) mismatch (-want +got):\n%s", diff)
	}
	if got := Cascade([]byte("abc"), true); !cmp.Equal(got, []byte{0x61, 0x03, 0x65}) {
		t.Errorf("Cascade(abc) = %x", got)
	}
}

func TestCascadeLongInputHasNoDepthLimit(t *testing.T) {
	msg := make([]byte, 1<<20)
	for i := range msg {
		msg[i] = byte(i)
	}
	if !cmp.Equal(msg, Cascade(Cascade(msg, true), false)) {
		t.Fatal("round trip failed for 1 MiB input")
	}
}
