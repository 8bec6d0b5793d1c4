package component

import (
	"io"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/Zereker/wire/varnum"
)

const (
	// DefaultMaxChars is the default character bound of a String.
	DefaultMaxChars = 32767
	// DefaultMaxBytes is the default byte bound of Bytes, 32767 * 4.
	DefaultMaxBytes = DefaultMaxChars * 4
)

// Bytes is a VarInt length followed by raw bytes. Declared lengths above
// Max are rejected before the body is read. A zero Max means DefaultMaxBytes.
type Bytes struct {
	Max int
}

func (b Bytes) bound() int {
	if b.Max <= 0 {
		return DefaultMaxBytes
	}
	return b.Max
}

func (b Bytes) Decode(_ *Context, r io.Reader) ([]byte, error) {
	return readPrefixed(r, b.bound())
}

func (b Bytes) Encode(v []byte, _ *Context, w io.Writer) error {
	return writePrefixed(w, v, b.bound())
}

func (Bytes) Size(v []byte, _ *Context) (Size, error) {
	return Dynamic(varnum.SizeVarInt(int32(len(v))) + len(v)), nil
}

// String is a VarInt byte length followed by UTF-8. The byte bound is
// MaxChars * 4; a zero MaxChars means DefaultMaxChars.
type String struct {
	MaxChars int
}

func (s String) bound() int {
	if s.MaxChars <= 0 {
		return DefaultMaxBytes
	}
	return s.MaxChars * 4
}

func (s String) Decode(_ *Context, r io.Reader) (string, error) {
	b, err := readPrefixed(r, s.bound())
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", ErrInvalidUTF8
	}
	return string(b), nil
}

func (s String) Encode(v string, _ *Context, w io.Writer) error {
	return writePrefixed(w, []byte(v), s.bound())
}

func (String) Size(v string, _ *Context) (Size, error) {
	return Dynamic(varnum.SizeVarInt(int32(len(v))) + len(v)), nil
}

// Rest consumes every remaining byte of the source. It has no prefix and is
// only meaningful as the last field of a frame. Sources that know how much
// is left, such as a limit.Reader, are read exactly to that point.
type Rest struct{}

type remainder interface {
	Remaining() int64
}

func (Rest) Decode(_ *Context, r io.Reader) ([]byte, error) {
	if rr, ok := r.(remainder); ok {
		r = io.LimitReader(r, rr.Remaining())
	}
	return io.ReadAll(r)
}

func (Rest) Encode(v []byte, _ *Context, w io.Writer) error {
	_, err := w.Write(v)
	return err
}

func (Rest) Size(v []byte, _ *Context) (Size, error) {
	return Dynamic(len(v)), nil
}

func readLength(r io.Reader, bound int) (int, error) {
	n, err := varnum.ReadVarInt(r)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.Wrapf(ErrNegativeLength, "%d", n)
	}
	if bound > 0 && int(n) > bound {
		return 0, errors.Wrapf(ErrTooLong, "%d exceeds %d", n, bound)
	}
	return int(n), nil
}

func readPrefixed(r io.Reader, bound int) ([]byte, error) {
	n, err := readLength(r, bound)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if err := readFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func writePrefixed(w io.Writer, v []byte, bound int) error {
	if len(v) > bound {
		return errors.Wrapf(ErrTooLong, "%d exceeds %d", len(v), bound)
	}
	if err := varnum.WriteVarInt(w, int32(len(v))); err != nil {
		return err
	}
	_, err := w.Write(v)
	return err
}
