package nbt

import (
	"unicode/utf16"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Modified UTF-8 differs from UTF-8 in two ways: U+0000 is written as the
// two bytes C0 80, and characters outside the BMP are written as a UTF-16
// surrogate pair with each half encoded in three bytes.

func mutf8Len(s string) int {
	n := 0
	for _, r := range s {
		switch {
		case r == 0:
			n += 2
		case r < 0x80:
			n++
		case r < 0x800:
			n += 2
		case r < 0x10000:
			n += 3
		default:
			n += 6
		}
	}
	return n
}

func appendMUTF8(dst []byte, s string) []byte {
	for _, r := range s {
		switch {
		case r == 0:
			dst = append(dst, 0xC0, 0x80)
		case r < 0x80:
			dst = append(dst, byte(r))
		case r < 0x800:
			dst = append(dst, 0xC0|byte(r>>6), 0x80|byte(r&0x3F))
		case r < 0x10000:
			dst = appendUnit(dst, uint16(r))
		default:
			hi, lo := utf16.EncodeRune(r)
			dst = appendUnit(dst, uint16(hi))
			dst = appendUnit(dst, uint16(lo))
		}
	}
	return dst
}

func appendUnit(dst []byte, u uint16) []byte {
	return append(dst, 0xE0|byte(u>>12), 0x80|byte(u>>6&0x3F), 0x80|byte(u&0x3F))
}

func decodeMUTF8(b []byte) (string, error) {
	ascii := true
	for _, c := range b {
		if c == 0 || c >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return string(b), nil
	}

	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); {
		u, n, err := decodeUnit(b[i:])
		if err != nil {
			return "", errors.Wrapf(err, "at offset %d", i)
		}
		i += n

		r := rune(u)
		if utf16.IsSurrogate(r) {
			if r >= 0xDC00 || i >= len(b) {
				return "", errors.Wrapf(ErrInvalidModifiedUTF8, "unpaired surrogate at offset %d", i-n)
			}
			lo, m, err := decodeUnit(b[i:])
			if err != nil {
				return "", errors.Wrapf(err, "at offset %d", i)
			}
			r = utf16.DecodeRune(r, rune(lo))
			if r == utf8.RuneError {
				return "", errors.Wrapf(ErrInvalidModifiedUTF8, "unpaired surrogate at offset %d", i-n)
			}
			i += m
		}
		out = utf8.AppendRune(out, r)
	}
	return string(out), nil
}

// decodeUnit decodes one UTF-16 code unit from a 1, 2 or 3 byte group.
func decodeUnit(b []byte) (uint16, int, error) {
	c := b[0]
	switch {
	case c == 0:
		return 0, 0, ErrInvalidModifiedUTF8
	case c < 0x80:
		return uint16(c), 1, nil
	case c&0xE0 == 0xC0:
		if len(b) < 2 || b[1]&0xC0 != 0x80 {
			return 0, 0, ErrInvalidModifiedUTF8
		}
		u := uint16(c&0x1F)<<6 | uint16(b[1]&0x3F)
		// C0 80 is the only overlong form allowed.
		if u < 0x80 && u != 0 {
			return 0, 0, ErrInvalidModifiedUTF8
		}
		return u, 2, nil
	case c&0xF0 == 0xE0:
		if len(b) < 3 || b[1]&0xC0 != 0x80 || b[2]&0xC0 != 0x80 {
			return 0, 0, ErrInvalidModifiedUTF8
		}
		u := uint16(c&0x0F)<<12 | uint16(b[1]&0x3F)<<6 | uint16(b[2]&0x3F)
		if u < 0x800 {
			return 0, 0, ErrInvalidModifiedUTF8
		}
		return u, 3, nil
	default:
		return 0, 0, ErrInvalidModifiedUTF8
	}
}
