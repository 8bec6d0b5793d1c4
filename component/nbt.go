package component

import (
	"io"

	"github.com/Zereker/wire/nbt"
)

// NBT is an optional root compound. A nil compound encodes as a single 0
// byte. A zero Limit means nbt.DefaultLimit.
type NBT struct {
	Limit uint64
}

func (n NBT) Decode(_ *Context, r io.Reader) (nbt.Compound, error) {
	limit := n.Limit
	if limit == 0 {
		limit = nbt.DefaultLimit
	}
	return nbt.ReadNBT(r, limit)
}

func (NBT) Encode(v nbt.Compound, _ *Context, w io.Writer) error {
	return nbt.WriteOptionalNBT(w, v)
}

func (NBT) Size(v nbt.Compound, _ *Context) (Size, error) {
	return Dynamic(nbt.SizeOptionalNBT(v)), nil
}
