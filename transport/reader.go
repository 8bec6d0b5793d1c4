// Package transport assembles frames from a byte stream and writes encoded
// frames back to one.
package transport

import (
	"bytes"
	"crypto/cipher"
	"io"

	"github.com/pkg/errors"

	"github.com/Zereker/wire/cfb8"
	"github.com/Zereker/wire/component"
	"github.com/Zereker/wire/pipeline"
	"github.com/Zereker/wire/varnum"
)

const (
	// DefaultInitialSize is the starting size of a Reader's buffer.
	DefaultInitialSize = 4 << 10
	// DefaultMaxSize is the largest a Reader's buffer may grow.
	DefaultMaxSize = 2 << 20

	maxConsecutiveEmptyReads = 100
)

var (
	// ErrBufferFull is returned when the buffer cannot hold the next frame.
	ErrBufferFull = errors.New("no packet found but buffer is full")
	// ErrNegativeFrameSize is returned when a frame length prefix is negative.
	ErrNegativeFrameSize = errors.New("negative frame size")
)

// FrameError reports a frame that was read in full but failed to decode.
// The stream is still aligned on the next frame, so the Reader stays usable.
type FrameError struct {
	Err error
}

func (e *FrameError) Error() string { return "decode frame: " + e.Err.Error() }

func (e *FrameError) Unwrap() error { return e.Err }

// Reader assembles length-prefixed frames from a source and decodes each one
// through a processor. All partial progress lives in the Reader, so a source
// that returns one byte per Read yields the same frames as one that returns
// everything at once.
//
// A Reader is owned by a single goroutine.
type Reader[T any] struct {
	src  io.Reader
	proc pipeline.Processor[[]byte, T]
	ctx  *component.Context

	buf        []byte
	start, end int
	max        int
	// pending is the body length of the frame being assembled, or -1 while
	// its prefix has not been parsed.
	pending int
}

// NewReader returns a Reader over src. A maxSize of zero or less means
// DefaultMaxSize.
func NewReader[T any](src io.Reader, proc pipeline.Processor[[]byte, T], maxSize int) *Reader[T] {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	initial := DefaultInitialSize
	if initial > maxSize {
		initial = maxSize
	}
	return &Reader[T]{
		src:     src,
		proc:    proc,
		ctx:     component.NewContext(),
		buf:     make([]byte, initial),
		max:     maxSize,
		pending: -1,
	}
}

// Next returns the next decoded frame. It reads from the source only when
// the buffer does not already hold a complete frame.
//
// It returns io.EOF when the source ends on a frame boundary and
// io.ErrUnexpectedEOF when it ends inside one. Decoding failures are
// returned as *FrameError; any other error leaves the stream unusable.
func (r *Reader[T]) Next() (T, error) {
	for {
		frame, err := r.frame()
		if err != nil {
			var zero T
			return zero, err
		}
		if frame != nil {
			r.ctx.Reset()
			v, err := r.proc.Process(r.ctx, frame)
			if err != nil {
				return v, &FrameError{Err: err}
			}
			return v, nil
		}
		if err := r.fill(); err != nil {
			var zero T
			return zero, err
		}
	}
}

// frame returns the next complete frame body, or nil if more bytes are
// needed. The returned slice does not alias the buffer.
func (r *Reader[T]) frame() ([]byte, error) {
	if r.pending < 0 {
		size, n, err := varnum.PeekVarInt(r.buf[r.start:r.end])
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, nil
		}
		if size < 0 {
			return nil, errors.Wrapf(ErrNegativeFrameSize, "%d", size)
		}
		if int(size) > r.max {
			return nil, errors.Wrapf(ErrBufferFull, "frame of %d bytes, buffer limit %d", size, r.max)
		}
		r.start += n
		r.pending = int(size)
	}

	if r.end-r.start < r.pending {
		return nil, nil
	}
	frame := bytes.Clone(r.buf[r.start : r.start+r.pending])
	if frame == nil {
		frame = []byte{}
	}
	r.start += r.pending
	r.pending = -1
	return frame, nil
}

// fill reads once from the source, making room in the buffer first.
func (r *Reader[T]) fill() error {
	if r.start == r.end {
		r.start, r.end = 0, 0
	}
	if r.end == len(r.buf) {
		switch {
		case r.start > 0:
			r.end = copy(r.buf, r.buf[r.start:r.end])
			r.start = 0
		case len(r.buf) < r.max:
			size := 2 * len(r.buf)
			if size > r.max {
				size = r.max
			}
			grown := make([]byte, size)
			copy(grown, r.buf[:r.end])
			r.buf = grown
		default:
			return errors.Wrapf(ErrBufferFull, "%d bytes buffered", r.end-r.start)
		}
	}

	for i := 0; i < maxConsecutiveEmptyReads; i++ {
		n, err := r.src.Read(r.buf[r.end:])
		r.end += n
		if n > 0 {
			return nil
		}
		if err == io.EOF {
			if r.end > r.start || r.pending >= 0 {
				return io.ErrUnexpectedEOF
			}
			return io.EOF
		}
		if err != nil {
			return err
		}
	}
	return io.ErrNoProgress
}

// Buffered returns the number of bytes read but not yet consumed.
func (r *Reader[T]) Buffered() int {
	return r.end - r.start
}

// EnableDecryption routes all further input through s. Bytes already
// buffered but not yet consumed are decrypted in place, since they arrived
// after the peer switched on encryption.
func (r *Reader[T]) EnableDecryption(s cipher.Stream) {
	tail := r.buf[r.start:r.end]
	s.XORKeyStream(tail, tail)
	r.src = cfb8.NewReader(r.src, s)
}
