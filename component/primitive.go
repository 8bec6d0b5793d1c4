package component

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/Zereker/wire/varnum"
)

// Number is the set of types Fixed can encode.
type Number interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Fixed encodes a number as big-endian bytes of its natural width.
type Fixed[T Number] struct{}

func (Fixed[T]) Decode(_ *Context, r io.Reader) (T, error) {
	var v T
	err := binary.Read(r, binary.BigEndian, &v)
	return v, err
}

func (Fixed[T]) Encode(v T, _ *Context, w io.Writer) error {
	return binary.Write(w, binary.BigEndian, v)
}

func (Fixed[T]) Size(v T, _ *Context) (Size, error) {
	return Constant(binary.Size(v)), nil
}

// Common fixed-width codecs.
var (
	Int8    Fixed[int8]
	Uint8   Fixed[uint8]
	Int16   Fixed[int16]
	Uint16  Fixed[uint16]
	Int32   Fixed[int32]
	Int64   Fixed[int64]
	Float32 Fixed[float32]
	Float64 Fixed[float64]
)

// Bool is a single byte. Any nonzero byte decodes as true.
type Bool struct{}

func (Bool) Decode(_ *Context, r io.Reader) (bool, error) {
	var b [1]byte
	if err := readFull(r, b[:]); err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

func (Bool) Encode(v bool, _ *Context, w io.Writer) error {
	b := [1]byte{0}
	if v {
		b[0] = 1
	}
	_, err := w.Write(b[:])
	return err
}

func (Bool) Size(bool, *Context) (Size, error) {
	return Constant(1), nil
}

// Flags packs up to 8 booleans into one byte, flag i at bit 1<<i.
type Flags struct {
	N int
}

func (f Flags) Decode(_ *Context, r io.Reader) ([]bool, error) {
	var b [1]byte
	if err := readFull(r, b[:]); err != nil {
		return nil, err
	}
	out := make([]bool, f.N)
	for i := range out {
		out[i] = b[0]&(1<<i) != 0
	}
	return out, nil
}

func (f Flags) Encode(v []bool, _ *Context, w io.Writer) error {
	if len(v) > 8 || len(v) > f.N {
		return errors.Wrapf(ErrTooLong, "%d flags in a %d flag byte", len(v), f.N)
	}
	var b byte
	for i, set := range v {
		if set {
			b |= 1 << i
		}
	}
	_, err := w.Write([]byte{b})
	return err
}

func (Flags) Size([]bool, *Context) (Size, error) {
	return Constant(1), nil
}

// VarInt is a 32-bit integer in variable-length form.
type VarInt struct{}

func (VarInt) Decode(_ *Context, r io.Reader) (int32, error) {
	return varnum.ReadVarInt(r)
}

func (VarInt) Encode(v int32, _ *Context, w io.Writer) error {
	return varnum.WriteVarInt(w, v)
}

func (VarInt) Size(v int32, _ *Context) (Size, error) {
	return Dynamic(varnum.SizeVarInt(v)), nil
}

// VarLong is a 64-bit integer in variable-length form.
type VarLong struct{}

func (VarLong) Decode(_ *Context, r io.Reader) (int64, error) {
	return varnum.ReadVarLong(r)
}

func (VarLong) Encode(v int64, _ *Context, w io.Writer) error {
	return varnum.WriteVarLong(w, v)
}

func (VarLong) Size(v int64, _ *Context) (Size, error) {
	return Dynamic(varnum.SizeVarLong(v)), nil
}
