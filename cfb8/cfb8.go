// Package cfb8 implements 8-bit cipher feedback mode over a block cipher and
// the stream adapters used to encrypt a connection at its outermost layer.
package cfb8

import (
	"crypto/aes"
	"crypto/cipher"
	"io"

	"github.com/pkg/errors"
)

// ErrIVLength is returned when the IV does not match the cipher block size.
var ErrIVLength = errors.New("cfb8: iv length must equal block size")

type cfb8 struct {
	block    cipher.Block
	register []byte
	out      []byte
	decrypt  bool
}

// NewEncrypter returns a stream that encrypts with block in CFB8 mode.
func NewEncrypter(block cipher.Block, iv []byte) (cipher.Stream, error) {
	return newCFB8(block, iv, false)
}

// NewDecrypter returns a stream that decrypts with block in CFB8 mode.
func NewDecrypter(block cipher.Block, iv []byte) (cipher.Stream, error) {
	return newCFB8(block, iv, true)
}

func newCFB8(block cipher.Block, iv []byte, decrypt bool) (cipher.Stream, error) {
	if len(iv) != block.BlockSize() {
		return nil, errors.Wrapf(ErrIVLength, "got %d, want %d", len(iv), block.BlockSize())
	}
	register := make([]byte, len(iv))
	copy(register, iv)
	return &cfb8{
		block:    block,
		register: register,
		out:      make([]byte, len(iv)),
		decrypt:  decrypt,
	}, nil
}

// XORKeyStream processes src one byte at a time. Each byte is combined with
// the first byte of the encrypted register, then the ciphertext byte is
// shifted into the register. dst and src may overlap entirely.
func (x *cfb8) XORKeyStream(dst, src []byte) {
	if len(dst) < len(src) {
		panic("cfb8: output smaller than input")
	}
	last := len(x.register) - 1
	for i, in := range src {
		x.block.Encrypt(x.out, x.register)
		res := in ^ x.out[0]

		feedback := res
		if x.decrypt {
			feedback = in
		}
		copy(x.register, x.register[1:])
		x.register[last] = feedback

		dst[i] = res
	}
}

// NewAES returns an encrypting and a decrypting CFB8 stream for an AES key.
// The two streams keep independent feedback registers, one per direction.
func NewAES(key, iv []byte) (enc, dec cipher.Stream, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, errors.Wrap(err, "cfb8: aes key")
	}
	if enc, err = NewEncrypter(block, iv); err != nil {
		return nil, nil, err
	}
	if dec, err = NewDecrypter(block, iv); err != nil {
		return nil, nil, err
	}
	return enc, dec, nil
}

// NewReader decrypts everything read from r through s. A nil s returns r
// unchanged.
func NewReader(r io.Reader, s cipher.Stream) io.Reader {
	if s == nil {
		return r
	}
	return &cipher.StreamReader{S: s, R: r}
}

// NewWriter encrypts everything written to w through s. A nil s returns w
// unchanged.
func NewWriter(w io.Writer, s cipher.Stream) io.Writer {
	if s == nil {
		return w
	}
	return &cipher.StreamWriter{S: s, W: w}
}
