package nbt

import (
	"math"

	"github.com/pkg/errors"
)

// MaxDepth is the deepest a list or compound may be nested below the root.
const MaxDepth = 512

// DefaultLimit is the accounting ceiling used by protocol components.
const DefaultLimit = 0x200000

// Fixed costs charged when a tag is loaded. They approximate the in-memory
// footprint of the decoded value rather than its wire size.
const (
	costEnd        = 64
	costByte       = 72
	costShort      = 80
	costInt        = 96
	costLong       = 128
	costFloat      = 96
	costDouble     = 128
	costArray      = 192
	costString     = 288
	costList       = 296
	costCompound   = 384
	costEntry      = 224
	costDuplicate  = 288
	costPerChar    = 16
	costPerElement = 32
)

// Accounter tallies the cost of a decode against a ceiling.
// A ceiling of zero disables accounting.
type Accounter struct {
	limit uint64
	used  uint64
}

// NewAccounter returns an Accounter with the given ceiling.
func NewAccounter(limit uint64) *Accounter {
	return &Accounter{limit: limit}
}

// AccountBytes adds cost to the tally.
func (a *Accounter) AccountBytes(cost uint64) error {
	if a.limit == 0 {
		return nil
	}
	if cost > math.MaxUint64-a.used {
		return errors.Wrap(ErrTagTooBig, "accounter overflowed")
	}
	next := a.used + cost
	if next > a.limit {
		return errors.Wrapf(ErrTagTooBig, "read %d of allowed %d", next, a.limit)
	}
	a.used = next
	return nil
}

// Used returns the cost charged so far.
func (a *Accounter) Used() uint64 {
	return a.used
}
