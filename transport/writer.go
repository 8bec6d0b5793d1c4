package transport

import (
	"crypto/cipher"
	"io"
	"sync"

	"github.com/Zereker/wire/cfb8"
	"github.com/Zereker/wire/component"
	"github.com/Zereker/wire/pipeline"
)

// Writer encodes values into frames and writes them to a sink. Encode may be
// called from any goroutine; writes to the sink are serialized.
type Writer[T any] struct {
	proc pipeline.Processor[T, []byte]

	mu  sync.Mutex
	dst io.Writer
}

// NewWriter returns a Writer that runs values through proc and writes the
// result to dst. proc is expected to end with a size prefix.
func NewWriter[T any](dst io.Writer, proc pipeline.Processor[T, []byte]) *Writer[T] {
	return &Writer[T]{proc: proc, dst: dst}
}

// Encode runs v through the pipeline with a fresh context and returns the
// framed bytes without writing them.
func (w *Writer[T]) Encode(v T) ([]byte, error) {
	return w.proc.Process(component.NewContext(), v)
}

// Write encodes v and writes the frame.
func (w *Writer[T]) Write(v T) error {
	frame, err := w.Encode(v)
	if err != nil {
		return err
	}
	return w.WriteFrame(frame)
}

// WriteFrame writes bytes produced by Encode.
func (w *Writer[T]) WriteFrame(frame []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := w.dst.Write(frame)
	return err
}

// EnableEncryption routes all later frames through s.
func (w *Writer[T]) EnableEncryption(s cipher.Stream) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dst = cfb8.NewWriter(w.dst, s)
}
