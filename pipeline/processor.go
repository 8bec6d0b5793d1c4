// Package pipeline composes the byte-level stages that sit between a typed
// packet and the wire: component encoding, compression and size framing.
//
// Stages are linked once at construction. Link only accepts stages whose
// types line up, so a mismatched chain fails to compile.
package pipeline

import (
	"github.com/pkg/errors"

	"github.com/Zereker/wire/component"
)

// Errors returned by pipeline stages.
var (
	// ErrLengthMismatch is returned when a decompressed frame does not match its declared length.
	ErrLengthMismatch = errors.New("decoded length does not match data length")
	// ErrFrameTooLarge is returned when a frame declares more data than allowed.
	ErrFrameTooLarge = errors.New("frame too large")
	// ErrSizeMismatch is returned when a codec writes a different number of bytes than it reported.
	ErrSizeMismatch = errors.New("encoded size does not match reported size")
)

// Processor transforms one buffered value into another.
type Processor[I, O any] interface {
	Process(ctx *component.Context, in I) (O, error)
}

// Func adapts a function to a Processor.
type Func[I, O any] func(ctx *component.Context, in I) (O, error)

func (f Func[I, O]) Process(ctx *component.Context, in I) (O, error) {
	return f(ctx, in)
}

type link[I, M, O any] struct {
	first  Processor[I, M]
	second Processor[M, O]
}

// Link returns a Processor that feeds the output of first into second.
func Link[I, M, O any](first Processor[I, M], second Processor[M, O]) Processor[I, O] {
	return link[I, M, O]{first: first, second: second}
}

func (l link[I, M, O]) Process(ctx *component.Context, in I) (O, error) {
	mid, err := l.first.Process(ctx, in)
	if err != nil {
		var zero O
		return zero, err
	}
	return l.second.Process(ctx, mid)
}
