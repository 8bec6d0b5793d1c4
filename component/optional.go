package component

import "io"

// Optional is a presence byte followed by the value when present. A nil
// pointer is absent and encodes as a single 0 byte.
type Optional[T any] struct {
	Elem Codec[T]
}

func (o Optional[T]) Decode(ctx *Context, r io.Reader) (*T, error) {
	present, err := Bool{}.Decode(ctx, r)
	if err != nil || !present {
		return nil, err
	}
	v, err := o.Elem.Decode(ctx, r)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (o Optional[T]) Encode(v *T, ctx *Context, w io.Writer) error {
	if err := (Bool{}).Encode(v != nil, ctx, w); err != nil || v == nil {
		return err
	}
	return o.Elem.Encode(*v, ctx, w)
}

func (o Optional[T]) Size(v *T, ctx *Context) (Size, error) {
	if v == nil {
		return Dynamic(1), nil
	}
	s, err := o.Elem.Size(*v, ctx)
	if err != nil {
		return Size{}, err
	}
	return s.AddBytes(1), nil
}
