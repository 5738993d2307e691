package elf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/dwarfscope/internal/testutil"
)

func TestSegments_BothClasses(t *testing.T) {
	for _, class := range []byte{testutil.ELFClass32, testutil.ELFClass64} {
		t.Run(Class(class).String(), func(t *testing.T) {
			b := testutil.NewELF(class)
			b.Segments = []testutil.ELFSegment{
				{Type: testutil.PTLoad, Flags: testutil.PFR, Vaddr: 0x400000, Filesz: 0x100, Memsz: 0x100, Align: 0x1000},
				{Type: testutil.PTLoad, Flags: testutil.PFR | testutil.PFX, Offset: 0x1000, Vaddr: 0x401000, Filesz: 0x200, Memsz: 0x200, Align: 0x1000},
				{Type: testutil.PTLoad, Flags: testutil.PFR | testutil.PFW, Offset: 0x2000, Vaddr: 0x402000, Filesz: 0x10, Memsz: 0x80, Align: 0x1000},
			}
			f := parse(t, b)

			segs, err := f.Segments()
			require.NoError(t, err)
			require.Len(t, segs, 3)
			assert.Equal(t, SegmentTypeLoad, segs[1].Type)
			assert.Equal(t, SegmentFlagR|SegmentFlagX, segs[1].Flags)
			assert.Equal(t, uint64(0x1000), segs[1].Offset)
			assert.Equal(t, uint64(0x401000), segs[1].Vaddr)
			assert.Equal(t, uint64(0x401000), segs[1].Paddr)
			assert.Equal(t, uint64(0x200), segs[1].Filesz)
			assert.Equal(t, uint64(0x80), segs[2].Memsz)
			assert.Equal(t, uint64(0x1000), segs[2].Align)

			base, ok, err := f.TextBase()
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, uint64(0x401000), base)
		})
	}
}

func TestSegments_NoProgramHeaders(t *testing.T) {
	f := parse(t, testutil.NewELF(testutil.ELFClass64))

	segs, err := f.Segments()
	require.NoError(t, err)
	assert.Empty(t, segs)

	_, ok, err := f.TextBase()
	require.NoError(t, err)
	assert.False(t, ok)
}
