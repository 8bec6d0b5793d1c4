// Package limit provides readers that bound how many bytes a nested decode
// step may consume, so one packet's decode never reads into the next.
package limit

import (
	"io"

	"github.com/pkg/errors"
)

var (
	// ErrLimitExceeded is returned when a read would pass the limit.
	ErrLimitExceeded = errors.New("read limit exceeded")
	// ErrUnderRead is returned by AssertLength when fewer bytes than the limit were consumed.
	ErrUnderRead = errors.New("buffer under-read")
)

// Reader fails any read whose completion would take it past its limit.
// The check happens before the underlying reader is touched.
type Reader struct {
	r        io.Reader
	limit    int64
	consumed int64
}

// NewReader returns a Reader that allows exactly limit bytes from r.
func NewReader(r io.Reader, limit int64) *Reader {
	return &Reader{r: r, limit: limit}
}

func (l *Reader) Read(p []byte) (n int, err error) {
	if l.consumed+int64(len(p)) > l.limit {
		return 0, errors.Wrapf(ErrLimitExceeded, "read of %d bytes at %d/%d", len(p), l.consumed, l.limit)
	}
	n, err = l.r.Read(p)
	l.consumed += int64(n)
	return
}

// ReadByte reads a single byte under the same limit.
func (l *Reader) ReadByte() (byte, error) {
	var one [1]byte
	if _, err := io.ReadFull(l, one[:]); err != nil {
		return 0, err
	}
	return one[0], nil
}

// Consumed returns the number of bytes read so far.
func (l *Reader) Consumed() int64 {
	return l.consumed
}

// Remaining returns how many bytes may still be read.
func (l *Reader) Remaining() int64 {
	return l.limit - l.consumed
}

// AssertLength fails unless exactly limit bytes have been consumed.
func (l *Reader) AssertLength() error {
	if l.consumed != l.limit {
		return errors.Wrapf(ErrUnderRead, "consumed %d of %d", l.consumed, l.limit)
	}
	return nil
}

// SoftReader truncates reads at its limit instead of failing, then reports
// io.EOF once the limit is reached.
type SoftReader struct {
	r         io.Reader
	remaining int64
}

// NewSoftReader returns a SoftReader that yields at most limit bytes of r.
func NewSoftReader(r io.Reader, limit int64) *SoftReader {
	return &SoftReader{r: r, remaining: limit}
}

func (s *SoftReader) Read(p []byte) (n int, err error) {
	if s.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > s.remaining {
		p = p[:s.remaining]
	}
	n, err = s.r.Read(p)
	s.remaining -= int64(n)
	return
}

// Remaining returns how many bytes may still be read.
func (s *SoftReader) Remaining() int64 {
	return s.remaining
}
