// Package component defines how values are encoded, decoded and sized on
// the wire.
//
// A Codec[T] describes a type's wire form. Codecs compose: sequences,
// optionals, fixed arrays and tagged unions are built from element codecs.
// For every value, Size must report exactly the number of bytes Encode
// writes, which lets callers allocate output buffers up front.
package component

import (
	"io"

	"github.com/pkg/errors"
)

// Errors returned by codecs.
var (
	// ErrTooLong is returned when a length prefix or value exceeds its bound.
	ErrTooLong = errors.New("length exceeded bound")
	// ErrNegativeLength is returned when a length prefix is negative.
	ErrNegativeLength = errors.New("negative length")
	// ErrInvalidUTF8 is returned when a string payload is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("invalid utf-8")
	// ErrInvalidVariant is returned when no union variant matches a discriminant.
	ErrInvalidVariant = errors.New("invalid variant key")
)

// Codec encodes, decodes and sizes values of type T. The Context is owned by
// the calling operation for its whole duration.
type Codec[T any] interface {
	Decode(ctx *Context, r io.Reader) (T, error)
	Encode(v T, ctx *Context, w io.Writer) error
	Size(v T, ctx *Context) (Size, error)
}

// Mapped adapts a Codec[A] into a Codec[B] through a pair of conversions.
type Mapped[A, B any] struct {
	Codec Codec[A]
	To    func(A) (B, error)
	From  func(B) A
}

func (m Mapped[A, B]) Decode(ctx *Context, r io.Reader) (B, error) {
	a, err := m.Codec.Decode(ctx, r)
	if err != nil {
		var zero B
		return zero, err
	}
	return m.To(a)
}

func (m Mapped[A, B]) Encode(v B, ctx *Context, w io.Writer) error {
	return m.Codec.Encode(m.From(v), ctx, w)
}

func (m Mapped[A, B]) Size(v B, ctx *Context) (Size, error) {
	return m.Codec.Size(m.From(v), ctx)
}

func readFull(r io.Reader, p []byte) error {
	_, err := io.ReadFull(r, p)
	return err
}
