package pipeline

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/Zereker/wire/component"
	"github.com/Zereker/wire/limit"
	"github.com/Zereker/wire/varnum"
)

// Frame is an undecoded packet: its id and the bytes of its body.
type Frame struct {
	ID   int32
	Data []byte
}

// IDEncoder writes a frame as its VarInt id followed by its data.
type IDEncoder struct{}

func (IDEncoder) Process(_ *component.Context, f Frame) ([]byte, error) {
	out := make([]byte, 0, varnum.SizeVarInt(f.ID)+len(f.Data))
	out = varnum.AppendVarInt(out, f.ID)
	return append(out, f.Data...), nil
}

// IDDecoder splits a VarInt id from the front of a frame body.
type IDDecoder struct{}

func (IDDecoder) Process(_ *component.Context, data []byte) (Frame, error) {
	id, n, err := varnum.PeekVarInt(data)
	if err != nil {
		return Frame{}, err
	}
	if n == 0 {
		return Frame{}, errors.Wrap(limit.ErrUnderRead, "packet id")
	}
	return Frame{ID: id, Data: data[n:]}, nil
}

// Encoder turns a value into bytes with a component codec. The output buffer
// is sized from the codec before encoding.
type Encoder[T any] struct {
	Codec component.Codec[T]
}

func (e Encoder[T]) Process(ctx *component.Context, v T) ([]byte, error) {
	size, err := e.Codec.Size(v, ctx)
	if err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(make([]byte, 0, size.Len()))
	if err := e.Codec.Encode(v, ctx, buf); err != nil {
		return nil, err
	}
	if buf.Len() != size.Len() {
		return nil, errors.Wrapf(ErrSizeMismatch, "%T reported %v, wrote %d", v, size, buf.Len())
	}
	return buf.Bytes(), nil
}

// Decoder turns one frame body into a value with a component codec. The
// codec may not read past the body and must consume all of it.
type Decoder[T any] struct {
	Codec component.Codec[T]
}

func (d Decoder[T]) Process(ctx *component.Context, data []byte) (T, error) {
	r := limit.NewReader(bytes.NewReader(data), int64(len(data)))
	v, err := d.Codec.Decode(ctx, r)
	if err != nil {
		var zero T
		return zero, err
	}
	if err := r.AssertLength(); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}
