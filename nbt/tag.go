// Package nbt reads and writes the tagged binary tree format used for
// self-describing structured data.
//
// All multi-byte scalars are big-endian and strings are length-prefixed
// modified UTF-8. Decoding charges every tag against an Accounter so a
// hostile tree cannot force unbounded allocation, and nesting is capped at
// MaxDepth.
package nbt

// TagType is the one-byte identifier written before every tag.
type TagType byte

// Tag identifiers.
const (
	TagEnd TagType = iota
	TagByte
	TagShort
	TagInt
	TagLong
	TagFloat
	TagDouble
	TagByteArray
	TagString
	TagList
	TagCompound
	TagIntArray
	TagLongArray
)

var tagNames = [...]string{
	"End", "Byte", "Short", "Int", "Long", "Float", "Double",
	"ByteArray", "String", "List", "Compound", "IntArray", "LongArray",
}

func (t TagType) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "Unknown"
}

// Tag is a node of the tree.
type Tag interface {
	Type() TagType
}

type (
	End       struct{}
	Byte      int8
	Short     int16
	Int       int32
	Long      int64
	Float     float32
	Double    float64
	ByteArray []byte
	String    string
	IntArray  []int32
	LongArray []int64
)

// List is a homogeneous sequence. Elem must match the type of every item;
// an empty list may use TagEnd.
type List struct {
	Elem  TagType
	Items []Tag
}

// Compound maps names to tags. Entry order carries no meaning.
type Compound map[string]Tag

func (End) Type() TagType       { return TagEnd }
func (Byte) Type() TagType      { return TagByte }
func (Short) Type() TagType     { return TagShort }
func (Int) Type() TagType       { return TagInt }
func (Long) Type() TagType      { return TagLong }
func (Float) Type() TagType     { return TagFloat }
func (Double) Type() TagType    { return TagDouble }
func (ByteArray) Type() TagType { return TagByteArray }
func (String) Type() TagType    { return TagString }
func (List) Type() TagType      { return TagList }
func (Compound) Type() TagType  { return TagCompound }
func (IntArray) Type() TagType  { return TagIntArray }
func (LongArray) Type() TagType { return TagLongArray }

// NewList builds a list whose element type is taken from the first item.
func NewList(items ...Tag) List {
	if len(items) == 0 {
		return List{Elem: TagEnd, Items: []Tag{}}
	}
	return List{Elem: items[0].Type(), Items: items}
}

// Put stores tag under name and returns c for chaining.
func (c Compound) Put(name string, tag Tag) Compound {
	c[name] = tag
	return c
}

// Get returns the tag stored under name.
func (c Compound) Get(name string) (Tag, bool) {
	t, ok := c[name]
	return t, ok
}
