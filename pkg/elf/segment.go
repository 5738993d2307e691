package elf

import (
	"fmt"
)

// SegmentType is the p_type field of a program header.
type SegmentType uint32

const (
	SegmentTypeNull    SegmentType = 0
	SegmentTypeLoad    SegmentType = 1
	SegmentTypeDynamic SegmentType = 2
	SegmentTypeInterp  SegmentType = 3
	SegmentTypeNote    SegmentType = 4
	SegmentTypePhdr    SegmentType = 6
	SegmentTypeTLS     SegmentType = 7
)

// Segment permission bits (p_flags).
const (
	SegmentFlagX uint32 = 1
	SegmentFlagW uint32 = 2
	SegmentFlagR uint32 = 4
)

// Segment is a decoded program header.
type Segment struct {
	Type   SegmentType
	Flags  uint32
	Offset uint64
	Vaddr  uint64
	Paddr  uint64
	Filesz uint64
	Memsz  uint64
	Align  uint64
}

type segmentLayout struct {
	flags, offset, vaddr, paddr, filesz, memsz, align uint64

	wordSize  int
	entrySize uint64
}

var segmentLayout32 = segmentLayout{
	offset: 0x04, vaddr: 0x08, paddr: 0x0c, filesz: 0x10, memsz: 0x14, flags: 0x18, align: 0x1c,
	wordSize: 4, entrySize: 0x20,
}

var segmentLayout64 = segmentLayout{
	flags: 0x04, offset: 0x08, vaddr: 0x10, paddr: 0x18, filesz: 0x20, memsz: 0x28, align: 0x30,
	wordSize: 8, entrySize: 0x38,
}

// Segments decodes the program header table. Relocatable objects have none.
func (f *File) Segments() ([]Segment, error) {
	phoff, err := f.r.Uint(f.layout.phoff, f.layout.wordSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read program header offset: %w", err)
	}
	phentsize, err := f.r.Uint16(f.layout.phentsize)
	if err != nil {
		return nil, fmt.Errorf("failed to read program header entry size: %w", err)
	}
	phnum, err := f.r.Uint16(f.layout.phnum)
	if err != nil {
		return nil, fmt.Errorf("failed to read program header count: %w", err)
	}
	if phoff == 0 || phnum == 0 {
		return nil, nil
	}

	l := &segmentLayout64
	if f.Class == Class32 {
		l = &segmentLayout32
	}
	if uint64(phentsize) < l.entrySize {
		return nil, fmt.Errorf("program header entry size %d is smaller than %d", phentsize, l.entrySize)
	}

	out := make([]Segment, 0, phnum)
	for i := uint64(0); i < uint64(phnum); i++ {
		hdr, err := f.r.Slice(phoff+i*uint64(phentsize), l.entrySize)
		if err != nil {
			return nil, fmt.Errorf("program header %d: %w", i, err)
		}
		var s Segment
		typ, _ := hdr.Uint32(0)
		s.Type = SegmentType(typ)
		flags, _ := hdr.Uint32(l.flags)
		s.Flags = flags
		s.Offset, _ = hdr.Uint(l.offset, l.wordSize)
		s.Vaddr, _ = hdr.Uint(l.vaddr, l.wordSize)
		s.Paddr, _ = hdr.Uint(l.paddr, l.wordSize)
		s.Filesz, _ = hdr.Uint(l.filesz, l.wordSize)
		s.Memsz, _ = hdr.Uint(l.memsz, l.wordSize)
		s.Align, _ = hdr.Uint(l.align, l.wordSize)
		out = append(out, s)
	}
	return out, nil
}

// TextBase returns the virtual address of the first executable PT_LOAD
// segment, the link-time base runtime addresses are rebased against.
func (f *File) TextBase() (uint64, bool, error) {
	segs, err := f.Segments()
	if err != nil {
		return 0, false, err
	}
	for _, s := range segs {
		if s.Type == SegmentTypeLoad && s.Flags&SegmentFlagX != 0 {
			return s.Vaddr, true, nil
		}
	}
	return 0, false, nil
}
