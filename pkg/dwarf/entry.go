package dwarf

// Entry is one debugging information entry. Entries are built once by the
// decoder and never mutated; references between entries stay raw offsets and
// are resolved through an Index.
type Entry struct {
	// Offset is the .debug_info offset of the entry and its identity.
	Offset   uint64
	Tag      Tag
	Code     uint64
	Attrs    []Value
	Children []*Entry
	Unit     *UnitHeader
}

// Val returns the value of attr, or nil when the entry does not carry it.
func (e *Entry) Val(attr Attr) Value {
	for _, v := range e.Attrs {
		if v.Header().Attr == attr {
			return v
		}
	}
	return nil
}

// Has reports whether the entry carries attr.
func (e *Entry) Has(attr Attr) bool {
	return e.Val(attr) != nil
}

// Uint returns attr as an unsigned integer.
func (e *Entry) Uint(attr Attr) (uint64, bool) {
	v := e.Val(attr)
	if v == nil {
		return 0, false
	}
	return AsUint(v)
}

// Int returns attr as a signed integer.
func (e *Entry) Int(attr Attr) (int64, bool) {
	v := e.Val(attr)
	if v == nil {
		return 0, false
	}
	return AsInt(v)
}

// Flag reports whether a flag attribute is present and set.
func (e *Entry) Flag(attr Attr) bool {
	switch v := e.Val(attr).(type) {
	case FlagValue:
		return v.Flag
	case FlagPresentValue:
		return true
	}
	return false
}

// Ref returns the .debug_info offset referenced by attr. Unit-relative forms
// are rebased on the containing unit; ref_addr is already absolute.
func (e *Entry) Ref(attr Attr) (uint64, bool) {
	v := e.Val(attr)
	if v == nil {
		return 0, false
	}
	form := v.Header().Form
	switch {
	case form.IsUnitRef():
		off, _ := AsUint(v)
		if e.Unit == nil {
			return off, true
		}
		return e.Unit.Offset + off, true
	case form == FormRefAddr:
		return AsUint(v)
	}
	return 0, false
}

// InlineString returns attr when it is encoded inline as DW_FORM_string.
// Use Data.AttrString to resolve every string form.
func (e *Entry) InlineString(attr Attr) (string, bool) {
	if v, ok := e.Val(attr).(StringValue); ok {
		return v.Str, true
	}
	return "", false
}
