package component

import (
	"io"

	"github.com/pkg/errors"

	"github.com/Zereker/wire/varnum"
)

// ErrArrayLength is returned when a fixed array is encoded with the wrong
// number of elements.
var ErrArrayLength = errors.New("array length mismatch")

// Seq is a VarInt element count followed by each element. A positive Max
// rejects larger counts before any element is read.
type Seq[T any] struct {
	Elem Codec[T]
	Max  int
}

func (s Seq[T]) Decode(ctx *Context, r io.Reader) ([]T, error) {
	n, err := readLength(r, s.Max)
	if err != nil {
		return nil, err
	}
	return decodeN(s.Elem, ctx, r, n)
}

func (s Seq[T]) Encode(v []T, ctx *Context, w io.Writer) error {
	if s.Max > 0 && len(v) > s.Max {
		return errors.Wrapf(ErrTooLong, "%d exceeds %d", len(v), s.Max)
	}
	if err := varnum.WriteVarInt(w, int32(len(v))); err != nil {
		return err
	}
	return encodeAll(s.Elem, v, ctx, w)
}

func (s Seq[T]) Size(v []T, ctx *Context) (Size, error) {
	elems, err := sizeAll(s.Elem, v, ctx)
	if err != nil {
		return Size{}, err
	}
	return elems.AddBytes(varnum.SizeVarInt(int32(len(v)))), nil
}

// Array is exactly Len elements with no count prefix.
type Array[T any] struct {
	Elem Codec[T]
	Len  int
}

func (a Array[T]) Decode(ctx *Context, r io.Reader) ([]T, error) {
	return decodeN(a.Elem, ctx, r, a.Len)
}

func (a Array[T]) Encode(v []T, ctx *Context, w io.Writer) error {
	if len(v) != a.Len {
		return errors.Wrapf(ErrArrayLength, "got %d, want %d", len(v), a.Len)
	}
	return encodeAll(a.Elem, v, ctx, w)
}

func (a Array[T]) Size(v []T, ctx *Context) (Size, error) {
	return sizeAll(a.Elem, v, ctx)
}

func decodeN[T any](elem Codec[T], ctx *Context, r io.Reader, n int) ([]T, error) {
	capacity := n
	if capacity > 1024 {
		capacity = 1024
	}
	out := make([]T, 0, capacity)
	for i := 0; i < n; i++ {
		v, err := elem.Decode(ctx, r)
		if err != nil {
			return nil, errors.Wrapf(err, "element %d", i)
		}
		out = append(out, v)
	}
	return out, nil
}

func encodeAll[T any](elem Codec[T], v []T, ctx *Context, w io.Writer) error {
	for i := range v {
		if err := elem.Encode(v[i], ctx, w); err != nil {
			return errors.Wrapf(err, "element %d", i)
		}
	}
	return nil
}

// sizeAll sums element sizes. A constant element size holds for the whole
// type, so it is multiplied out instead of visiting every element.
func sizeAll[T any](elem Codec[T], v []T, ctx *Context) (Size, error) {
	if len(v) == 0 {
		return Constant(0), nil
	}
	first, err := elem.Size(v[0], ctx)
	if err != nil {
		return Size{}, err
	}
	if first.IsConstant() {
		return Constant(first.Len() * len(v)), nil
	}

	total := first
	for i := 1; i < len(v); i++ {
		s, err := elem.Size(v[i], ctx)
		if err != nil {
			return Size{}, err
		}
		total = total.Add(s)
	}
	return total, nil
}
