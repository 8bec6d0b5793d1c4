package pipeline

import (
	"bytes"
	"io"
	"sync/atomic"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"

	"github.com/Zereker/wire/component"
	"github.com/Zereker/wire/varnum"
)

// DefaultMaxDataLength caps the declared decompressed length of a frame.
const DefaultMaxDataLength = 8 << 20

// threshold is shared by the encoder and decoder of one connection so a
// compression change applies to both directions.
type threshold struct {
	v atomic.Int64
}

// Threshold returns the current compression threshold. A negative value
// means compression is disabled.
func (t *threshold) Threshold() int {
	return int(t.v.Load())
}

// SetThreshold changes the compression threshold. Safe for concurrent use.
func (t *threshold) SetThreshold(n int) {
	t.v.Store(int64(n))
}

// FrameEncoder compresses frame bodies. With a negative threshold data
// passes through unchanged. Otherwise every frame starts with a VarInt data
// length: 0 for bodies shorter than the threshold, which follow raw, or the
// uncompressed length followed by zlib data.
type FrameEncoder struct {
	threshold
	Level int
}

// NewFrameEncoder returns an encoder with the given threshold.
func NewFrameEncoder(threshold int) *FrameEncoder {
	e := &FrameEncoder{Level: zlib.DefaultCompression}
	e.SetThreshold(threshold)
	return e
}

func (e *FrameEncoder) Process(_ *component.Context, data []byte) ([]byte, error) {
	t := e.Threshold()
	if t < 0 {
		return data, nil
	}
	// an empty body must stay raw: a declared length of 0 means uncompressed
	if len(data) < t || len(data) == 0 {
		out := make([]byte, 0, 1+len(data))
		out = append(out, 0)
		return append(out, data...), nil
	}

	var buf bytes.Buffer
	buf.Grow(varnum.MaxVarIntLen + len(data)/2)
	buf.Write(varnum.AppendVarInt(nil, int32(len(data))))

	zw, err := zlib.NewWriterLevel(&buf, e.Level)
	if err != nil {
		return nil, errors.Wrap(err, "zlib writer")
	}
	if _, err := zw.Write(data); err != nil {
		return nil, errors.Wrap(err, "compress frame")
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "compress frame")
	}
	return buf.Bytes(), nil
}

// FrameDecoder reverses FrameEncoder.
type FrameDecoder struct {
	threshold
	MaxDataLength int
}

// NewFrameDecoder returns a decoder with the given threshold.
func NewFrameDecoder(threshold int) *FrameDecoder {
	d := &FrameDecoder{MaxDataLength: DefaultMaxDataLength}
	d.SetThreshold(threshold)
	return d
}

func (d *FrameDecoder) Process(_ *component.Context, data []byte) ([]byte, error) {
	if d.Threshold() < 0 {
		return data, nil
	}

	declared, n, err := varnum.PeekVarInt(data)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, io.ErrUnexpectedEOF
	}
	body := data[n:]
	if declared == 0 {
		return body, nil
	}
	if declared < 0 || (d.MaxDataLength > 0 && int(declared) > d.MaxDataLength) {
		return nil, errors.Wrapf(ErrFrameTooLarge, "data length %d", declared)
	}

	zr, err := zlib.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "decompress frame")
	}
	defer zr.Close()

	out := bytes.NewBuffer(make([]byte, 0, declared))
	// one extra byte reveals data beyond the declared length
	actual, err := io.Copy(out, io.LimitReader(zr, int64(declared)+1))
	if err != nil {
		return nil, errors.Wrap(err, "decompress frame")
	}
	if actual != int64(declared) {
		return nil, errors.Wrapf(ErrLengthMismatch, "actual decoded %d is not the same as data length %d", actual, declared)
	}
	return out.Bytes(), nil
}

// SizeAppender prefixes data with its VarInt length.
type SizeAppender struct{}

func (SizeAppender) Process(_ *component.Context, data []byte) ([]byte, error) {
	out := make([]byte, 0, varnum.SizeVarInt(int32(len(data)))+len(data))
	out = varnum.AppendVarInt(out, int32(len(data)))
	return append(out, data...), nil
}
