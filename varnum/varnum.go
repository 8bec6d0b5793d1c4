// Package varnum implements the variable-length integer encoding used for
// lengths and small tags throughout the wire format.
//
// Values are written as their unsigned bit pattern in groups of 7 bits, least
// significant group first. The high bit of each byte is set when another
// group follows. A VarInt never takes more than 5 bytes and a VarLong never
// more than 10.
package varnum

import (
	"io"

	"github.com/pkg/errors"
)

const (
	// MaxVarIntLen is the maximum encoded length of a 32-bit value.
	MaxVarIntLen = 5
	// MaxVarLongLen is the maximum encoded length of a 64-bit value.
	MaxVarLongLen = 10

	segmentBits  = 0x7F
	continueBit  = 0x80
	varIntLimit  = 35
	varLongLimit = 70
)

var (
	// ErrVarIntTooBig is returned when a VarInt does not terminate within 5 bytes.
	ErrVarIntTooBig = errors.New("var int too big, could not find end")
	// ErrVarLongTooBig is returned when a VarLong does not terminate within 10 bytes.
	ErrVarLongTooBig = errors.New("var long too big, could not find end")
)

// SizeVarInt returns the number of bytes WriteVarInt produces for v.
func SizeVarInt(v int32) int {
	u := uint32(v)
	n := 1
	for u&0xFFFFFF80 != 0 {
		u >>= 7
		n++
	}
	return n
}

// SizeVarLong returns the number of bytes WriteVarLong produces for v.
func SizeVarLong(v int64) int {
	u := uint64(v)
	n := 1
	for u&0xFFFFFFFFFFFFFF80 != 0 {
		u >>= 7
		n++
	}
	return n
}

// AppendVarInt appends the encoding of v to dst.
func AppendVarInt(dst []byte, v int32) []byte {
	u := uint32(v)
	for u&0xFFFFFF80 != 0 {
		dst = append(dst, byte(u&segmentBits|continueBit))
		u >>= 7
	}
	return append(dst, byte(u))
}

// AppendVarLong appends the encoding of v to dst.
func AppendVarLong(dst []byte, v int64) []byte {
	u := uint64(v)
	for u&0xFFFFFFFFFFFFFF80 != 0 {
		dst = append(dst, byte(u&segmentBits|continueBit))
		u >>= 7
	}
	return append(dst, byte(u))
}

// WriteVarInt writes the encoding of v to w.
func WriteVarInt(w io.Writer, v int32) error {
	var buf [MaxVarIntLen]byte
	_, err := w.Write(AppendVarInt(buf[:0], v))
	return err
}

// WriteVarLong writes the encoding of v to w.
func WriteVarLong(w io.Writer, v int64) error {
	var buf [MaxVarLongLen]byte
	_, err := w.Write(AppendVarLong(buf[:0], v))
	return err
}

// ReadVarInt reads one VarInt from r.
//
// It returns io.EOF when r is exhausted before the first byte and
// io.ErrUnexpectedEOF when r ends in the middle of a value.
func ReadVarInt(r io.Reader) (int32, error) {
	v, err := read(r, varIntLimit, ErrVarIntTooBig)
	return int32(uint32(v)), err
}

// ReadVarLong reads one VarLong from r. EOF handling matches ReadVarInt.
func ReadVarLong(r io.Reader) (int64, error) {
	v, err := read(r, varLongLimit, ErrVarLongTooBig)
	return int64(v), err
}

// PeekVarInt decodes a VarInt from the front of buf without consuming it.
// It returns the value and the number of bytes it occupies. When buf holds
// only part of a value, n is 0 and err is nil.
func PeekVarInt(buf []byte) (value int32, n int, err error) {
	var (
		u     uint32
		shift uint
	)
	for i, b := range buf {
		if shift == varIntLimit {
			return 0, 0, ErrVarIntTooBig
		}
		u |= uint32(b&segmentBits) << shift
		shift += 7
		if b&continueBit == 0 {
			return int32(u), i + 1, nil
		}
	}
	if shift >= varIntLimit {
		return 0, 0, ErrVarIntTooBig
	}
	return 0, 0, nil
}

func read(r io.Reader, limit uint, tooBig error) (uint64, error) {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = byteReader{r}
	}

	var (
		u     uint64
		shift uint
	)
	for {
		if shift == limit {
			return 0, tooBig
		}
		b, err := br.ReadByte()
		if err != nil {
			if err == io.EOF && shift > 0 {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, err
		}
		u |= uint64(b&segmentBits) << shift
		shift += 7
		if b&continueBit == 0 {
			return u, nil
		}
	}
}

type byteReader struct {
	r io.Reader
}

func (b byteReader) ReadByte() (byte, error) {
	var one [1]byte
	for {
		n, err := b.r.Read(one[:])
		if n == 1 {
			return one[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
}
