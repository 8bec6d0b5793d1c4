package component

import (
	"io"

	"github.com/pkg/errors"
)

// Variant is one case of a Union. It is selected when Match reports true
// for the discriminant or, when Match is nil, when the discriminant equals
// Key.
type Variant[K comparable, T any] struct {
	Key   K
	Match func(K) bool
	Codec Codec[T]
}

func (v *Variant[K, T]) matches(k K) bool {
	if v.Match != nil {
		return v.Match(k)
	}
	return v.Key == k
}

// Union is a discriminant followed by the body of the variant it selects.
// KeyOf derives the discriminant of a value when encoding. Default, when
// set, decodes discriminants no variant matches.
type Union[K comparable, T any] struct {
	Key      Codec[K]
	KeyOf    func(T) K
	Variants []Variant[K, T]
	Default  *Variant[K, T]
}

type discriminantKey struct{}

// Discriminant returns the discriminant most recently decoded by a Union
// within ctx. Variant codecs use it when one codec serves several keys.
func Discriminant[K any](ctx *Context) (K, bool) {
	return ContextValue[K](ctx, discriminantKey{})
}

func (u Union[K, T]) variant(k K) (*Variant[K, T], error) {
	for i := range u.Variants {
		if u.Variants[i].matches(k) {
			return &u.Variants[i], nil
		}
	}
	if u.Default != nil {
		return u.Default, nil
	}
	return nil, errors.Wrapf(ErrInvalidVariant, "%v", k)
}

func (u Union[K, T]) Decode(ctx *Context, r io.Reader) (T, error) {
	var zero T
	k, err := u.Key.Decode(ctx, r)
	if err != nil {
		return zero, err
	}
	v, err := u.variant(k)
	if err != nil {
		return zero, err
	}
	ctx.Set(discriminantKey{}, k)
	return v.Codec.Decode(ctx, r)
}

func (u Union[K, T]) Encode(val T, ctx *Context, w io.Writer) error {
	k := u.KeyOf(val)
	v, err := u.variant(k)
	if err != nil {
		return err
	}
	if err := u.Key.Encode(k, ctx, w); err != nil {
		return err
	}
	return v.Codec.Encode(val, ctx, w)
}

func (u Union[K, T]) Size(val T, ctx *Context) (Size, error) {
	k := u.KeyOf(val)
	v, err := u.variant(k)
	if err != nil {
		return Size{}, err
	}
	ks, err := u.Key.Size(k, ctx)
	if err != nil {
		return Size{}, err
	}
	vs, err := v.Codec.Size(val, ctx)
	if err != nil {
		return Size{}, err
	}
	// Variants may differ in width, so a union is never constant sized.
	return Dynamic(ks.Add(vs).Len()), nil
}
