package dwarf

import (
	"fmt"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/coral-mesh/dwarfscope/pkg/buffer"
)

// AttrForm is one (attribute, form) pair of an abbreviation declaration.
type AttrForm struct {
	Attr Attr
	Form Form
	// ImplicitConst holds the value of a DW_FORM_implicit_const attribute,
	// which is stored in the declaration instead of the entry.
	ImplicitConst int64
}

// Abbrev is one abbreviation declaration.
type Abbrev struct {
	// Offset is the .debug_abbrev offset of the declaration's code.
	Offset      uint64
	Code        uint64
	Tag         Tag
	HasChildren bool
	Fields      []AttrForm
	// Size is the encoded size of the declaration in bytes.
	Size uint64
	// Sibling is the arena index of the next declaration in the table, or -1.
	Sibling int
}

// AbbrevTable is the set of declarations starting at one .debug_abbrev offset.
type AbbrevTable struct {
	Offset uint64
	decls  []Abbrev
	byCode map[uint64]int
}

// Lookup returns the declaration with the given code.
func (t *AbbrevTable) Lookup(code uint64) (*Abbrev, bool) {
	i, ok := t.byCode[code]
	if !ok {
		return nil, false
	}
	return &t.decls[i], true
}

// Len returns the number of declarations.
func (t *AbbrevTable) Len() int {
	return len(t.decls)
}

// At returns the declaration at arena index i.
func (t *AbbrevTable) At(i int) *Abbrev {
	return &t.decls[i]
}

type abbrevKey struct {
	offset uint64
	limit  uint64
}

// AbbrevSection decodes abbreviation tables from .debug_abbrev. Tables are
// decoded once per (offset, limit) and shared between callers; it is safe for
// concurrent use.
type AbbrevSection struct {
	r *buffer.Reader

	mu    sync.RWMutex
	cache map[abbrevKey]*AbbrevTable
	group singleflight.Group
}

// NewAbbrevSection returns a decoder over the contents of .debug_abbrev.
func NewAbbrevSection(r *buffer.Reader) *AbbrevSection {
	return &AbbrevSection{
		r:     r,
		cache: make(map[abbrevKey]*AbbrevTable),
	}
}

// Cached returns the number of decoded tables held by the cache.
func (s *AbbrevSection) Cached() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// Table returns the table starting at offset. Decoding stops at a zero code or
// after limit bytes; a zero limit means the end of the section.
func (s *AbbrevSection) Table(offset, limit uint64) (*AbbrevTable, error) {
	key := abbrevKey{offset: offset, limit: limit}

	s.mu.RLock()
	t, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return t, nil
	}

	v, err, _ := s.group.Do(strconv.FormatUint(offset, 16)+":"+strconv.FormatUint(limit, 16), func() (any, error) {
		s.mu.RLock()
		t, ok := s.cache[key]
		s.mu.RUnlock()
		if ok {
			return t, nil
		}

		t, err := s.decode(offset, limit)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.cache[key] = t
		s.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*AbbrevTable), nil
}

func (s *AbbrevSection) decode(offset, limit uint64) (*AbbrevTable, error) {
	end := s.r.Len()
	if limit != 0 && offset+limit >= offset && offset+limit < end {
		end = offset + limit
	}
	if offset > end {
		return nil, &DecodeError{Section: ".debug_abbrev", Offset: offset, Err: buffer.ErrOutOfBounds}
	}
	r, err := s.r.Slice(0, end)
	if err != nil {
		return nil, err
	}

	t := &AbbrevTable{Offset: offset, byCode: make(map[uint64]int)}
	c := buffer.NewCursor(r, offset)
	for c.Offset() < end {
		start := c.Offset()
		code := c.ULEB128()
		if c.Err() != nil || code == 0 {
			break
		}

		a := Abbrev{Offset: start, Code: code, Sibling: -1}
		tag := Tag(c.ULEB128())
		if c.Err() == nil && !tag.Known() {
			return nil, &DecodeError{Section: ".debug_abbrev", Offset: start, Err: fmt.Errorf("%w: 0x%x", ErrUnknownTag, uint64(tag))}
		}
		a.Tag = tag
		a.HasChildren = c.U8() != 0

		for {
			fieldOff := c.Offset()
			attr := Attr(c.ULEB128())
			form := Form(c.ULEB128())
			if c.Err() != nil || (attr == 0 && form == 0) {
				break
			}
			if !form.Known() {
				return nil, &DecodeError{Section: ".debug_abbrev", Offset: fieldOff, Err: fmt.Errorf("%w: 0x%x for %s", ErrUnknownForm, uint64(form), attr)}
			}
			f := AttrForm{Attr: attr, Form: form}
			if form == FormImplicitConst {
				f.ImplicitConst = c.SLEB128()
			}
			a.Fields = append(a.Fields, f)
		}
		if err := c.Err(); err != nil {
			return nil, &DecodeError{Section: ".debug_abbrev", Offset: start, Err: err}
		}
		a.Size = c.Offset() - start

		if _, dup := t.byCode[code]; !dup {
			t.byCode[code] = len(t.decls)
		}
		if n := len(t.decls); n > 0 {
			t.decls[n-1].Sibling = n
		}
		t.decls = append(t.decls, a)
	}
	if err := c.Err(); err != nil {
		return nil, &DecodeError{Section: ".debug_abbrev", Offset: c.Offset(), Err: err}
	}
	return t, nil
}
