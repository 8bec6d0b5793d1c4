package component

import (
	"bytes"
	"io"
	"testing"

	"github.com/maxatome/go-testdeep/td"
	"github.com/pkg/errors"

	"github.com/Zereker/wire/nbt"
)

// roundTrip encodes v, checks the reported size against the bytes written,
// and decodes the result back.
func roundTrip[T any](t *testing.T, c Codec[T], v T) (T, []byte) {
	t.Helper()

	ctx := NewContext()
	var buf bytes.Buffer
	if err := c.Encode(v, ctx, &buf); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	encoded := append([]byte(nil), buf.Bytes()...)

	size, err := c.Size(v, ctx)
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size.Len() != len(encoded) {
		t.Errorf("Size = %v, encoded %d bytes", size, len(encoded))
	}

	ctx.Reset()
	got, err := c.Decode(ctx, &buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("%d bytes left unread", buf.Len())
	}
	return got, encoded
}

func TestSizeArithmetic(t *testing.T) {
	tests := []struct {
		name         string
		got          Size
		wantLen      int
		wantConstant bool
	}{
		{"constant plus constant", Constant(2).Add(Constant(3)), 5, true},
		{"constant plus dynamic", Constant(2).Add(Dynamic(3)), 5, false},
		{"dynamic plus constant", Dynamic(2).Add(Constant(3)), 5, false},
		{"dynamic plus dynamic", Dynamic(2).Add(Dynamic(3)), 5, false},
		{"constant plus bytes", Constant(2).AddBytes(3), 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got.Len() != tt.wantLen {
				t.Errorf("Len = %d, want %d", tt.got.Len(), tt.wantLen)
			}
			if tt.got.IsConstant() != tt.wantConstant {
				t.Errorf("IsConstant = %v, want %v", tt.got.IsConstant(), tt.wantConstant)
			}
		})
	}
}

func TestFixed(t *testing.T) {
	got, encoded := roundTrip[int32](t, Int32, -2)
	if got != -2 {
		t.Errorf("Int32 round trip = %d", got)
	}
	td.Cmp(t, encoded, []byte{0xFF, 0xFF, 0xFF, 0xFE})

	u, encoded := roundTrip[uint16](t, Uint16, 0x1234)
	if u != 0x1234 {
		t.Errorf("Uint16 round trip = %#x", u)
	}
	td.Cmp(t, encoded, []byte{0x12, 0x34})

	f, _ := roundTrip[float64](t, Float64, 3.25)
	if f != 3.25 {
		t.Errorf("Float64 round trip = %v", f)
	}

	size, _ := Int64.Size(1, nil)
	td.Cmp(t, size, Constant(8))
}

func TestBool(t *testing.T) {
	got, encoded := roundTrip[bool](t, Bool{}, true)
	if !got {
		t.Error("Bool round trip = false")
	}
	td.Cmp(t, encoded, []byte{1})

	v, err := Bool{}.Decode(nil, bytes.NewReader([]byte{0x7F}))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !v {
		t.Error("nonzero byte decoded as false")
	}
}

func TestFlags(t *testing.T) {
	f := Flags{N: 4}
	got, encoded := roundTrip[[]bool](t, f, []bool{true, false, true, true})
	td.Cmp(t, got, []bool{true, false, true, true})
	td.Cmp(t, encoded, []byte{0b1101})

	if err := f.Encode(make([]bool, 5), nil, io.Discard); !errors.Is(err, ErrTooLong) {
		t.Errorf("expected ErrTooLong, got %v", err)
	}
}

func TestVarIntCodec(t *testing.T) {
	got, encoded := roundTrip[int32](t, VarInt{}, 55324)
	if got != 55324 {
		t.Errorf("VarInt round trip = %d", got)
	}
	td.Cmp(t, encoded, []byte{156, 176, 3})

	size, _ := VarInt{}.Size(1, nil)
	if size.IsConstant() {
		t.Error("VarInt size should be dynamic")
	}

	l, _ := roundTrip[int64](t, VarLong{}, -1)
	if l != -1 {
		t.Errorf("VarLong round trip = %d", l)
	}
}

func TestString(t *testing.T) {
	got, encoded := roundTrip[string](t, String{}, "hello, wörld")
	if got != "hello, wörld" {
		t.Errorf("String round trip = %q", got)
	}
	if encoded[0] != byte(len("hello, wörld")) {
		t.Errorf("length prefix = %d, want byte length", encoded[0])
	}
}

func TestString_BoundCheckedBeforeBody(t *testing.T) {
	// MaxChars 2 allows 8 bytes; the prefix claims 9 and no body follows.
	_, err := String{MaxChars: 2}.Decode(nil, bytes.NewReader([]byte{9}))
	if !errors.Is(err, ErrTooLong) {
		t.Errorf("expected ErrTooLong, got %v", err)
	}

	err = String{MaxChars: 2}.Encode("123456789", nil, io.Discard)
	if !errors.Is(err, ErrTooLong) {
		t.Errorf("expected ErrTooLong on encode, got %v", err)
	}
}

func TestString_DefaultBound(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xFD, 0xFF, 0x07}) // 131069
	_, err := String{}.Decode(nil, &buf)
	if !errors.Is(err, ErrTooLong) {
		t.Errorf("expected ErrTooLong, got %v", err)
	}
}

func TestString_InvalidUTF8(t *testing.T) {
	_, err := String{}.Decode(nil, bytes.NewReader([]byte{2, 0xC3, 0x28}))
	if !errors.Is(err, ErrInvalidUTF8) {
		t.Errorf("expected ErrInvalidUTF8, got %v", err)
	}
}

func TestBytes(t *testing.T) {
	got, _ := roundTrip[[]byte](t, Bytes{}, []byte{1, 2, 3})
	td.Cmp(t, got, []byte{1, 2, 3})

	_, err := Bytes{Max: 2}.Decode(nil, bytes.NewReader([]byte{3, 1, 2, 3}))
	if !errors.Is(err, ErrTooLong) {
		t.Errorf("expected ErrTooLong, got %v", err)
	}

	_, err = Bytes{}.Decode(nil, bytes.NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F}))
	if !errors.Is(err, ErrNegativeLength) {
		t.Errorf("expected ErrNegativeLength, got %v", err)
	}
}

func TestRest(t *testing.T) {
	got, err := Rest{}.Decode(nil, bytes.NewReader([]byte{9, 8, 7}))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	td.Cmp(t, got, []byte{9, 8, 7})
}

func TestSeq(t *testing.T) {
	ints := Seq[int32]{Elem: Int32}
	got, encoded := roundTrip[[]int32](t, ints, []int32{1, 2, 3})
	td.Cmp(t, got, []int32{1, 2, 3})
	if len(encoded) != 1+12 {
		t.Errorf("encoded %d bytes, want 13", len(encoded))
	}

	size, _ := ints.Size([]int32{1, 2, 3}, nil)
	if size.IsConstant() {
		t.Error("sequence with a count prefix should be dynamic")
	}

	strs := Seq[string]{Elem: String{}}
	gotStrs, _ := roundTrip[[]string](t, strs, []string{"a", "bcd", ""})
	td.Cmp(t, gotStrs, []string{"a", "bcd", ""})

	empty, _ := roundTrip[[]string](t, strs, []string{})
	td.Cmp(t, empty, []string{})
}

func TestSeq_Max(t *testing.T) {
	s := Seq[int32]{Elem: Int32, Max: 2}
	_, err := s.Decode(nil, bytes.NewReader([]byte{3}))
	if !errors.Is(err, ErrTooLong) {
		t.Errorf("expected ErrTooLong, got %v", err)
	}
	if err := s.Encode([]int32{1, 2, 3}, nil, io.Discard); !errors.Is(err, ErrTooLong) {
		t.Errorf("expected ErrTooLong on encode, got %v", err)
	}
}

func TestArray(t *testing.T) {
	a := Array[int16]{Elem: Int16, Len: 3}
	got, encoded := roundTrip[[]int16](t, a, []int16{-1, 0, 1})
	td.Cmp(t, got, []int16{-1, 0, 1})
	if len(encoded) != 6 {
		t.Errorf("encoded %d bytes, want 6", len(encoded))
	}

	size, _ := a.Size([]int16{1, 2, 3}, nil)
	td.Cmp(t, size, Constant(6))

	if err := a.Encode([]int16{1}, nil, io.Discard); !errors.Is(err, ErrArrayLength) {
		t.Errorf("expected ErrArrayLength, got %v", err)
	}
}

func TestOptional(t *testing.T) {
	o := Optional[string]{Elem: String{}}

	got, encoded := roundTrip[*string](t, o, nil)
	if got != nil {
		t.Errorf("absent round trip = %q", *got)
	}
	td.Cmp(t, encoded, []byte{0})

	v := "present"
	got, encoded = roundTrip[*string](t, o, &v)
	if got == nil || *got != v {
		t.Errorf("present round trip = %v", got)
	}
	if encoded[0] != 1 {
		t.Errorf("presence byte = %d, want 1", encoded[0])
	}
}

func TestNBTCodec(t *testing.T) {
	c := NBT{}
	got, encoded := roundTrip[nbt.Compound](t, c, nil)
	if got != nil {
		t.Errorf("absent round trip = %v", got)
	}
	td.Cmp(t, encoded, []byte{0})

	tree := nbt.Compound{"level": nbt.Int(3), "tags": nbt.NewList(nbt.String("a"))}
	got, _ = roundTrip[nbt.Compound](t, c, tree)
	td.Cmp(t, got, tree)

	_, err := NBT{Limit: 10}.Decode(nil, bytes.NewReader(encodeNBT(t, tree)))
	if !errors.Is(err, nbt.ErrTagTooBig) {
		t.Errorf("expected nbt.ErrTagTooBig, got %v", err)
	}
}

func encodeNBT(t *testing.T, c nbt.Compound) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := nbt.WriteNBT(&buf, c); err != nil {
		t.Fatalf("WriteNBT failed: %v", err)
	}
	return buf.Bytes()
}

func TestMapped(t *testing.T) {
	type level int
	m := Mapped[int32, level]{
		Codec: VarInt{},
		To:    func(v int32) (level, error) { return level(v), nil },
		From:  func(l level) int32 { return int32(l) },
	}
	got, _ := roundTrip[level](t, m, 300)
	if got != 300 {
		t.Errorf("Mapped round trip = %d", got)
	}
}

func TestContext(t *testing.T) {
	type key struct{}
	ctx := NewContext()
	ctx.Set(key{}, 42)

	v, ok := ContextValue[int](ctx, key{})
	if !ok || v != 42 {
		t.Errorf("ContextValue = (%d, %v), want (42, true)", v, ok)
	}

	ctx.Reset()
	if _, ok := ctx.Value(key{}); ok {
		t.Error("value survived Reset")
	}

	if _, ok := ContextValue[int](nil, key{}); ok {
		t.Error("nil context returned a value")
	}
}
