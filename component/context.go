package component

// Context carries auxiliary state between the codecs of one encode or decode
// operation, for example a value decoded early in a packet that later fields
// depend on. It is not safe for concurrent use and is cleared between
// independent operations.
type Context struct {
	values map[any]any
}

// NewContext returns an empty Context.
func NewContext() *Context {
	return &Context{}
}

// Set stores v under key. Keys should be unexported types to avoid
// collisions between codecs. Set on a nil Context is a no-op.
func (c *Context) Set(key, v any) {
	if c == nil {
		return
	}
	if c.values == nil {
		c.values = make(map[any]any)
	}
	c.values[key] = v
}

// Value returns the value stored under key.
func (c *Context) Value(key any) (any, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.values[key]
	return v, ok
}

// Delete removes key.
func (c *Context) Delete(key any) {
	if c == nil {
		return
	}
	delete(c.values, key)
}

// Reset clears all values.
func (c *Context) Reset() {
	if c == nil {
		return
	}
	clear(c.values)
}

// ContextValue returns the value stored under key as a T.
func ContextValue[T any](c *Context, key any) (T, bool) {
	v, ok := c.Value(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
