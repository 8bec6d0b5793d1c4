package nbt

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// Errors returned while decoding.
var (
	ErrTagTooBig           = errors.New("nbt tag too big")
	ErrTooDeep             = errors.New("nbt tag depth exceeded 512")
	ErrUnknownTag          = errors.New("unknown tag bit")
	ErrMissingListType     = errors.New("missing type on list tag")
	ErrRootNotCompound     = errors.New("root tag must be a compound tag")
	ErrNegativeLength      = errors.New("negative length")
	ErrInvalidModifiedUTF8 = errors.New("invalid modified utf-8")
	ErrStringTooLong       = errors.New("string too long")
)

// ReadNBT reads an optional root compound from r. A leading 0 byte means no
// tree is present and nil is returned without reading further. The root name
// is discarded. limit is the accounting ceiling; 0 disables it.
func ReadNBT(r io.Reader, limit uint64) (Compound, error) {
	d := decoder{r: r, acc: NewAccounter(limit)}

	id, err := d.u8()
	if err != nil {
		return nil, err
	}
	if id == byte(TagEnd) {
		return nil, nil
	}
	if id != byte(TagCompound) {
		return nil, errors.Wrapf(ErrRootNotCompound, "got %s", TagType(id))
	}
	if err := d.skipString(); err != nil {
		return nil, err
	}

	tag, err := d.load(TagCompound, 0)
	if err != nil {
		return nil, err
	}
	return tag.(Compound), nil
}

// LoadTag reads the payload of a tag of type t. depth is the nesting level of
// the tag itself.
func LoadTag(t TagType, r io.Reader, depth int, acc *Accounter) (Tag, error) {
	d := decoder{r: r, acc: acc}
	return d.load(t, depth)
}

type decoder struct {
	r   io.Reader
	acc *Accounter
	buf [8]byte
}

func (d *decoder) load(t TagType, depth int) (Tag, error) {
	switch t {
	case TagEnd:
		if err := d.acc.AccountBytes(costEnd); err != nil {
			return nil, err
		}
		return End{}, nil
	case TagByte:
		if err := d.acc.AccountBytes(costByte); err != nil {
			return nil, err
		}
		b, err := d.u8()
		return Byte(int8(b)), err
	case TagShort:
		if err := d.acc.AccountBytes(costShort); err != nil {
			return nil, err
		}
		v, err := d.u16()
		return Short(int16(v)), err
	case TagInt:
		if err := d.acc.AccountBytes(costInt); err != nil {
			return nil, err
		}
		v, err := d.u32()
		return Int(int32(v)), err
	case TagLong:
		if err := d.acc.AccountBytes(costLong); err != nil {
			return nil, err
		}
		v, err := d.u64()
		return Long(int64(v)), err
	case TagFloat:
		if err := d.acc.AccountBytes(costFloat); err != nil {
			return nil, err
		}
		v, err := d.u32()
		return Float(math.Float32frombits(v)), err
	case TagDouble:
		if err := d.acc.AccountBytes(costDouble); err != nil {
			return nil, err
		}
		v, err := d.u64()
		return Double(math.Float64frombits(v)), err
	case TagByteArray:
		return d.byteArray()
	case TagString:
		if err := d.acc.AccountBytes(costString); err != nil {
			return nil, err
		}
		s, err := d.string()
		if err != nil {
			return nil, err
		}
		if err := d.acc.AccountBytes(costPerChar * uint64(len(s))); err != nil {
			return nil, err
		}
		return String(s), nil
	case TagList:
		return d.list(depth)
	case TagCompound:
		return d.compound(depth)
	case TagIntArray:
		return d.intArray()
	case TagLongArray:
		return d.longArray()
	default:
		return nil, errors.Wrapf(ErrUnknownTag, "%d", byte(t))
	}
}

func (d *decoder) byteArray() (Tag, error) {
	if err := d.acc.AccountBytes(costArray); err != nil {
		return nil, err
	}
	n, err := d.length()
	if err != nil {
		return nil, err
	}
	if err := d.acc.AccountBytes(8 * uint64(n)); err != nil {
		return nil, err
	}
	var b bytes.Buffer
	b.Grow(capHint(n))
	if _, err := io.CopyN(&b, d.r, int64(n)); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	out := b.Bytes()
	if out == nil {
		out = []byte{}
	}
	return ByteArray(out), nil
}

func (d *decoder) intArray() (Tag, error) {
	if err := d.acc.AccountBytes(costArray); err != nil {
		return nil, err
	}
	n, err := d.length()
	if err != nil {
		return nil, err
	}
	if err := d.acc.AccountBytes(32 * uint64(n)); err != nil {
		return nil, err
	}
	out := make(IntArray, 0, capHint(n))
	for i := 0; i < n; i++ {
		v, err := d.u32()
		if err != nil {
			return nil, err
		}
		out = append(out, int32(v))
	}
	return out, nil
}

func (d *decoder) longArray() (Tag, error) {
	if err := d.acc.AccountBytes(costArray); err != nil {
		return nil, err
	}
	n, err := d.length()
	if err != nil {
		return nil, err
	}
	if err := d.acc.AccountBytes(64 * uint64(n)); err != nil {
		return nil, err
	}
	out := make(LongArray, 0, capHint(n))
	for i := 0; i < n; i++ {
		v, err := d.u64()
		if err != nil {
			return nil, err
		}
		out = append(out, int64(v))
	}
	return out, nil
}

func (d *decoder) list(depth int) (Tag, error) {
	if err := d.acc.AccountBytes(costList); err != nil {
		return nil, err
	}
	if depth > MaxDepth {
		return nil, errors.Wrapf(ErrTooDeep, "at depth %d", depth)
	}

	elem, err := d.u8()
	if err != nil {
		return nil, err
	}
	n, err := d.length()
	if err != nil {
		return nil, err
	}
	if elem == byte(TagEnd) && n > 0 {
		return nil, errors.Wrapf(ErrMissingListType, "with %d items", n)
	}
	if err := d.acc.AccountBytes(costPerElement * uint64(n)); err != nil {
		return nil, err
	}

	l := List{Elem: TagType(elem), Items: make([]Tag, 0, capHint(n))}
	for i := 0; i < n; i++ {
		item, err := d.load(l.Elem, depth+1)
		if err != nil {
			return nil, err
		}
		l.Items = append(l.Items, item)
	}
	return l, nil
}

func (d *decoder) compound(depth int) (Tag, error) {
	if err := d.acc.AccountBytes(costCompound); err != nil {
		return nil, err
	}
	if depth > MaxDepth {
		return nil, errors.Wrapf(ErrTooDeep, "at depth %d", depth)
	}

	c := make(Compound)
	for {
		id, err := d.u8()
		if err != nil {
			return nil, err
		}
		if id == byte(TagEnd) {
			return c, nil
		}

		name, err := d.string()
		if err != nil {
			return nil, err
		}
		if err := d.acc.AccountBytes(costEntry + costPerChar*uint64(len(name))); err != nil {
			return nil, err
		}
		tag, err := d.load(TagType(id), depth+1)
		if err != nil {
			return nil, err
		}
		if _, dup := c[name]; dup {
			if err := d.acc.AccountBytes(costDuplicate); err != nil {
				return nil, err
			}
		}
		c[name] = tag
	}
}

func (d *decoder) string() (string, error) {
	n, err := d.u16()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		return "", err
	}
	return decodeMUTF8(b)
}

func (d *decoder) skipString() error {
	n, err := d.u16()
	if err != nil {
		return err
	}
	_, err = io.CopyN(io.Discard, d.r, int64(n))
	return err
}

func (d *decoder) length() (int, error) {
	v, err := d.u32()
	if err != nil {
		return 0, err
	}
	n := int32(v)
	if n < 0 {
		return 0, errors.Wrapf(ErrNegativeLength, "%d", n)
	}
	return int(n), nil
}

func (d *decoder) u8() (byte, error) {
	if _, err := io.ReadFull(d.r, d.buf[:1]); err != nil {
		return 0, err
	}
	return d.buf[0], nil
}

func (d *decoder) u16() (uint16, error) {
	if _, err := io.ReadFull(d.r, d.buf[:2]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(d.buf[:2]), nil
}

func (d *decoder) u32() (uint32, error) {
	if _, err := io.ReadFull(d.r, d.buf[:4]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(d.buf[:4]), nil
}

func (d *decoder) u64() (uint64, error) {
	if _, err := io.ReadFull(d.r, d.buf[:8]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(d.buf[:8]), nil
}

// capHint bounds up-front allocation for counts taken off the wire.
func capHint(n int) int {
	if n > 1024 {
		return 1024
	}
	return n
}
