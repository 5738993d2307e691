package buffer

// Cursor walks a Reader sequentially. The first failed read is remembered and
// every later read returns a zero value, so decoders can read a whole record and
// check Err once at the end.
type Cursor struct {
	r   *Reader
	off uint64
	err error
}

// NewCursor returns a cursor positioned at off.
func NewCursor(r *Reader, off uint64) *Cursor {
	return &Cursor{r: r, off: off}
}

// Offset returns the current position.
func (c *Cursor) Offset() uint64 {
	return c.off
}

// Seek moves the cursor to off.
func (c *Cursor) Seek(off uint64) {
	c.off = off
}

// Err returns the first error encountered.
func (c *Cursor) Err() error {
	return c.err
}

// Skip advances the cursor by n bytes.
func (c *Cursor) Skip(n uint64) {
	if c.err != nil {
		return
	}
	if err := c.r.check(c.off, n); err != nil {
		c.err = err
		return
	}
	c.off += n
}

// U8 reads one byte.
func (c *Cursor) U8() uint8 {
	if c.err != nil {
		return 0
	}
	v, err := c.r.Uint8(c.off)
	c.advance(1, err)
	return v
}

// U16 reads a little-endian uint16.
func (c *Cursor) U16() uint16 {
	if c.err != nil {
		return 0
	}
	v, err := c.r.Uint16(c.off)
	c.advance(2, err)
	return v
}

// U32 reads a little-endian uint32.
func (c *Cursor) U32() uint32 {
	if c.err != nil {
		return 0
	}
	v, err := c.r.Uint32(c.off)
	c.advance(4, err)
	return v
}

// U64 reads a little-endian uint64.
func (c *Cursor) U64() uint64 {
	if c.err != nil {
		return 0
	}
	v, err := c.r.Uint64(c.off)
	c.advance(8, err)
	return v
}

// Uint reads an integer of the given width.
func (c *Cursor) Uint(width int) uint64 {
	if c.err != nil {
		return 0
	}
	v, err := c.r.Uint(c.off, width)
	c.advance(uint64(width), err)
	return v
}

// ULEB128 reads an unsigned LEB128 value.
func (c *Cursor) ULEB128() uint64 {
	if c.err != nil {
		return 0
	}
	v, n, err := c.r.ULEB128(c.off)
	c.advance(uint64(n), err)
	return v
}

// SLEB128 reads a signed LEB128 value.
func (c *Cursor) SLEB128() int64 {
	if c.err != nil {
		return 0
	}
	v, n, err := c.r.SLEB128(c.off)
	c.advance(uint64(n), err)
	return v
}

// CString reads a NUL-terminated string.
func (c *Cursor) CString() string {
	if c.err != nil {
		return ""
	}
	s, n, err := c.r.CString(c.off)
	c.advance(uint64(n), err)
	return s
}

func (c *Cursor) advance(n uint64, err error) {
	if err != nil {
		c.err = err
		return
	}
	c.off += n
}
