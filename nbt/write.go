package nbt

import (
	"encoding/binary"
	"io"
	"math"
	"sort"

	"github.com/pkg/errors"
)

// ErrInvalidTag is returned when a tag cannot be written where it appears,
// such as a nil or End value inside a compound or list.
var ErrInvalidTag = errors.New("invalid nbt tag")

// WriteNBT writes c as a root compound with an empty name.
func WriteNBT(w io.Writer, c Compound) error {
	e := encoder{w: w}
	if err := e.u8(byte(TagCompound)); err != nil {
		return err
	}
	if err := e.u16(0); err != nil {
		return err
	}
	return e.compound(c)
}

// WriteOptionalNBT writes c like WriteNBT, or a single 0 byte when c is nil.
func WriteOptionalNBT(w io.Writer, c Compound) error {
	if c == nil {
		_, err := w.Write([]byte{byte(TagEnd)})
		return err
	}
	return WriteNBT(w, c)
}

// WriteTag writes the payload of t without its type id.
func WriteTag(w io.Writer, t Tag) error {
	e := encoder{w: w}
	return e.tag(t)
}

// SizeNBT returns the number of bytes WriteNBT produces for c.
func SizeNBT(c Compound) int {
	return 1 + 2 + Size(c)
}

// SizeOptionalNBT returns the number of bytes WriteOptionalNBT produces for c.
func SizeOptionalNBT(c Compound) int {
	if c == nil {
		return 1
	}
	return SizeNBT(c)
}

// Size returns the number of bytes WriteTag produces for t.
func Size(t Tag) int {
	switch v := t.(type) {
	case End:
		return 0
	case Byte:
		return 1
	case Short:
		return 2
	case Int, Float:
		return 4
	case Long, Double:
		return 8
	case ByteArray:
		return 4 + len(v)
	case String:
		return 2 + mutf8Len(string(v))
	case List:
		n := 5
		for _, item := range v.Items {
			n += Size(item)
		}
		return n
	case Compound:
		n := 1
		for name, item := range v {
			n += 1 + 2 + mutf8Len(name) + Size(item)
		}
		return n
	case IntArray:
		return 4 + 4*len(v)
	case LongArray:
		return 4 + 8*len(v)
	default:
		return 0
	}
}

type encoder struct {
	w   io.Writer
	buf [8]byte
	str []byte
}

func (e *encoder) tag(t Tag) error {
	switch v := t.(type) {
	case End:
		return nil
	case Byte:
		return e.u8(byte(v))
	case Short:
		return e.u16(uint16(v))
	case Int:
		return e.u32(uint32(v))
	case Long:
		return e.u64(uint64(v))
	case Float:
		return e.u32(math.Float32bits(float32(v)))
	case Double:
		return e.u64(math.Float64bits(float64(v)))
	case ByteArray:
		if err := e.u32(uint32(len(v))); err != nil {
			return err
		}
		_, err := e.w.Write(v)
		return err
	case String:
		return e.string(string(v))
	case List:
		return e.list(v)
	case Compound:
		return e.compound(v)
	case IntArray:
		if err := e.u32(uint32(len(v))); err != nil {
			return err
		}
		for _, x := range v {
			if err := e.u32(uint32(x)); err != nil {
				return err
			}
		}
		return nil
	case LongArray:
		if err := e.u32(uint32(len(v))); err != nil {
			return err
		}
		for _, x := range v {
			if err := e.u64(uint64(x)); err != nil {
				return err
			}
		}
		return nil
	default:
		return errors.Errorf("nbt: unsupported tag %T", t)
	}
}

func (e *encoder) list(l List) error {
	if l.Elem == TagEnd && len(l.Items) > 0 {
		return errors.Wrapf(ErrMissingListType, "%d items", len(l.Items))
	}
	if err := e.u8(byte(l.Elem)); err != nil {
		return err
	}
	if err := e.u32(uint32(len(l.Items))); err != nil {
		return err
	}
	for i, item := range l.Items {
		if item == nil {
			return errors.Wrapf(ErrInvalidTag, "nil item at index %d", i)
		}
		if item.Type() != l.Elem {
			return errors.Errorf("nbt: list of %s holds %s at index %d", l.Elem, item.Type(), i)
		}
		if err := e.tag(item); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) compound(c Compound) error {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		item := c[name]
		if item == nil {
			return errors.Wrapf(ErrInvalidTag, "nil value for key %q", name)
		}
		if item.Type() == TagEnd {
			return errors.Wrapf(ErrInvalidTag, "end tag for key %q", name)
		}
		if err := e.u8(byte(item.Type())); err != nil {
			return err
		}
		if err := e.string(name); err != nil {
			return err
		}
		if err := e.tag(item); err != nil {
			return err
		}
	}
	return e.u8(byte(TagEnd))
}

func (e *encoder) string(s string) error {
	e.str = appendMUTF8(e.str[:0], s)
	if len(e.str) > math.MaxUint16 {
		return errors.Wrapf(ErrStringTooLong, "%d bytes", len(e.str))
	}
	if err := e.u16(uint16(len(e.str))); err != nil {
		return err
	}
	_, err := e.w.Write(e.str)
	return err
}

func (e *encoder) u8(v byte) error {
	e.buf[0] = v
	_, err := e.w.Write(e.buf[:1])
	return err
}

func (e *encoder) u16(v uint16) error {
	binary.BigEndian.PutUint16(e.buf[:2], v)
	_, err := e.w.Write(e.buf[:2])
	return err
}

func (e *encoder) u32(v uint32) error {
	binary.BigEndian.PutUint32(e.buf[:4], v)
	_, err := e.w.Write(e.buf[:4])
	return err
}

func (e *encoder) u64(v uint64) error {
	binary.BigEndian.PutUint64(e.buf[:8], v)
	_, err := e.w.Write(e.buf[:8])
	return err
}
