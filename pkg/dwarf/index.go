package dwarf

import (
	"iter"
	"sync"
)

// Tree is the result of decoding a whole .debug_info section.
type Tree struct {
	// Units lists the units that decoded successfully, in section order.
	Units []*UnitHeader
	// Entries holds the top-level entries of every decoded unit.
	Entries []*Entry
	// Failed lists the units that were abandoned.
	Failed []*UnitError

	indexOnce sync.Once
	index     *Index
}

// All iterates over every entry depth-first, parents before children.
func (t *Tree) All() iter.Seq[*Entry] {
	return func(yield func(*Entry) bool) {
		var walk func([]*Entry) bool
		walk = func(entries []*Entry) bool {
			for _, e := range entries {
				if !yield(e) || !walk(e.Children) {
					return false
				}
			}
			return true
		}
		walk(t.Entries)
	}
}

// Index returns the offset index of the tree, building it on first use.
func (t *Tree) Index() *Index {
	t.indexOnce.Do(func() {
		t.index = NewIndex(t.Entries)
	})
	return t.index
}

// Index is a read-only side table over a decoded tree: entries by offset and
// the parent of every entry.
type Index struct {
	roots    []*Entry
	byOffset map[uint64]*Entry
	parents  map[uint64]*Entry
}

// NewIndex indexes the trees rooted at roots.
func NewIndex(roots []*Entry) *Index {
	idx := &Index{
		roots:    roots,
		byOffset: make(map[uint64]*Entry),
		parents:  make(map[uint64]*Entry),
	}
	var add func(parent *Entry, entries []*Entry)
	add = func(parent *Entry, entries []*Entry) {
		for _, e := range entries {
			idx.byOffset[e.Offset] = e
			if parent != nil {
				idx.parents[e.Offset] = parent
			}
			add(e, e.Children)
		}
	}
	add(nil, roots)
	return idx
}

// Len returns the number of indexed entries.
func (idx *Index) Len() int {
	return len(idx.byOffset)
}

// Lookup returns the entry at .debug_info offset off.
func (idx *Index) Lookup(off uint64) (*Entry, bool) {
	e, ok := idx.byOffset[off]
	return e, ok
}

// Parent returns the entry that owns e.
func (idx *Index) Parent(e *Entry) (*Entry, bool) {
	p, ok := idx.parents[e.Offset]
	return p, ok
}

// Resolve follows the reference held by attr on e.
func (idx *Index) Resolve(e *Entry, attr Attr) (*Entry, bool) {
	off, ok := e.Ref(attr)
	if !ok {
		return nil, false
	}
	return idx.Lookup(off)
}

// Walk visits every entry depth-first with its depth, roots at depth 0.
// Returning false from fn skips the entry's children.
func (idx *Index) Walk(fn func(e *Entry, depth int) bool) {
	var walk func(entries []*Entry, depth int)
	walk = func(entries []*Entry, depth int) {
		for _, e := range entries {
			if fn(e, depth) {
				walk(e.Children, depth+1)
			}
		}
	}
	walk(idx.roots, 0)
}

// Find returns every entry matching pred in depth-first order.
func (idx *Index) Find(pred func(*Entry) bool) []*Entry {
	var out []*Entry
	idx.Walk(func(e *Entry, _ int) bool {
		if pred(e) {
			out = append(out, e)
		}
		return true
	})
	return out
}
