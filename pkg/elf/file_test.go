package elf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/dwarfscope/internal/testutil"
	"github.com/coral-mesh/dwarfscope/pkg/buffer"
)

func parse(t *testing.T, b *testutil.ELFBuilder) *File {
	t.Helper()
	f, err := NewFile(buffer.NewReader(b.Bytes()))
	require.NoError(t, err)
	return f
}

func TestNewFile_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(b *testutil.ELFBuilder)
		data    []byte
		wantErr error
	}{
		{
			name:    "bad magic",
			mutate:  func(b *testutil.ELFBuilder) { b.Magic = [4]byte{'M', 'Z', 0, 0} },
			wantErr: ErrNotAnELFFile,
		},
		{
			name:    "unknown class",
			mutate:  func(b *testutil.ELFBuilder) { b.Class = 3 },
			wantErr: ErrUnsupportedBitness,
		},
		{
			name:    "big endian",
			mutate:  func(b *testutil.ELFBuilder) { b.Data = 2 },
			wantErr: ErrUnsupportedEndianness,
		},
		{
			name:    "truncated ident",
			data:    []byte{0x7f, 'E', 'L', 'F', 2},
			wantErr: ErrNotAnELFFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.data
			if data == nil {
				b := testutil.NewELF(testutil.ELFClass64)
				tt.mutate(b)
				data = b.Bytes()
			}
			_, err := NewFile(buffer.NewReader(data))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewFile_HeaderFields(t *testing.T) {
	for _, class := range []byte{testutil.ELFClass32, testutil.ELFClass64} {
		b := testutil.NewELF(class)
		b.AddSection(testutil.ELFSection{Name: ".text", Type: testutil.SHTProgBits, Data: []byte{0x90, 0xc3}})
		f := parse(t, b)

		assert.Equal(t, Class(class), f.Class)
		// Null section, .text and .shstrtab.
		assert.Equal(t, 3, f.SectionCount())
		if class == testutil.ELFClass64 {
			assert.Equal(t, 64, f.SectionHeaderEntrySize())
			assert.Equal(t, uint16(62), f.Machine)
		} else {
			assert.Equal(t, 40, f.SectionHeaderEntrySize())
			assert.Equal(t, uint16(3), f.Machine)
		}
		assert.NotZero(t, f.SectionHeaderOffset())

		text, err := f.Section(1)
		require.NoError(t, err)
		assert.Equal(t, ".text", text.Name)
		assert.Equal(t, SectionTypeProgBits, text.Type)
		assert.Equal(t, uint64(2), text.Size)

		data, err := f.Data(text)
		require.NoError(t, err)
		raw, err := data.Bytes(0, 2)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x90, 0xc3}, raw)
	}
}

func TestSectionByName_AbsentIsNotAnError(t *testing.T) {
	// Only the section header string table.
	f := parse(t, testutil.NewELF(testutil.ELFClass64))
	require.Equal(t, 2, f.SectionCount())

	for i := 0; i < 2; i++ {
		s, err := f.SectionByName(".debug_info")
		require.NoError(t, err)
		assert.Nil(t, s)
	}

	s, err := f.SectionByName(".shstrtab")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, SectionTypeStrTab, s.Type)

	again, err := f.SectionByName(".shstrtab")
	require.NoError(t, err)
	assert.Equal(t, s, again)

	data, err := f.SectionData(".debug_line")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestSectionByName_WithoutSectionNameTable(t *testing.T) {
	tests := []struct {
		name  string
		class byte
		field int
	}{
		{"elf64 no section headers", testutil.ELFClass64, 0x3c},
		{"elf64 shstrndx undef", testutil.ELFClass64, 0x3e},
		{"elf32 no section headers", testutil.ELFClass32, 0x30},
		{"elf32 shstrndx undef", testutil.ELFClass32, 0x32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testutil.NewELF(tt.class)
			b.AddSection(testutil.ELFSection{Name: ".text", Type: testutil.SHTProgBits, Data: []byte{0x90}})
			data := b.Bytes()
			data[tt.field], data[tt.field+1] = 0, 0

			f, err := NewFile(buffer.NewReader(data))
			require.NoError(t, err)

			names, err := f.SectionNames()
			require.NoError(t, err)
			assert.Nil(t, names)

			s, err := f.SectionByName(".text")
			require.NoError(t, err)
			assert.Nil(t, s)

			raw, err := f.SectionData(".debug_info")
			require.NoError(t, err)
			assert.Nil(t, raw)

			for s, err := range f.Sections() {
				require.NoError(t, err)
				assert.Empty(t, s.Name)
			}
		})
	}
}

func TestSection_IndexOutOfRange(t *testing.T) {
	f := parse(t, testutil.NewELF(testutil.ELFClass32))

	_, err := f.Section(2)
	assert.ErrorIs(t, err, ErrSectionIndex)
	_, err = f.Section(-1)
	assert.ErrorIs(t, err, ErrSectionIndex)
}

func TestSections_IteratesInOrder(t *testing.T) {
	b := testutil.NewELF(testutil.ELFClass64)
	b.AddSection(testutil.ELFSection{Name: ".text", Type: testutil.SHTProgBits, Data: []byte{1}})
	b.AddSection(testutil.ELFSection{Name: ".bss", Type: testutil.SHTNoBits, Size: 4096})
	f := parse(t, b)

	var names []string
	for s, err := range f.Sections() {
		require.NoError(t, err)
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"", ".text", ".bss", ".shstrtab"}, names)

	bss, err := f.SectionByName(".bss")
	require.NoError(t, err)
	data, err := f.Data(bss)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), data.Len())
	assert.Equal(t, uint64(4096), bss.Size)
}

func TestView_DispatchesOnType(t *testing.T) {
	b := testutil.NewELF(testutil.ELFClass64)
	b.AddSection(testutil.ELFSection{Name: ".text", Type: testutil.SHTProgBits, Data: []byte{1, 2}})
	b.AddSection(testutil.ELFSection{Name: ".comment", Type: testutil.SHTStrTab, Data: []byte("\x00GCC\x00")})
	b.AddSymbols([]testutil.ELFSymbol{{Name: "main", Type: 2, Bind: 1, Section: 1}})
	b.AddSection(testutil.ELFSection{Name: ".note", Type: testutil.SHTNote, Data: []byte{0, 0, 0, 0}})
	f := parse(t, b)

	tests := []struct {
		section string
		check   func(t *testing.T, v View)
	}{
		{".text", func(t *testing.T, v View) {
			p, ok := v.(*ProgBits)
			require.True(t, ok)
			assert.Equal(t, uint64(2), p.Data().Len())
		}},
		{".comment", func(t *testing.T, v View) {
			_, ok := v.(*StringTable)
			assert.True(t, ok)
		}},
		{".symtab", func(t *testing.T, v View) {
			st, ok := v.(*SymbolTable)
			require.True(t, ok)
			assert.Equal(t, 2, st.Len())
		}},
		{".note", func(t *testing.T, v View) {
			_, ok := v.(*Generic)
			assert.True(t, ok)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.section, func(t *testing.T) {
			s, err := f.SectionByName(tt.section)
			require.NoError(t, err)
			require.NotNil(t, s)

			v, err := f.View(s)
			require.NoError(t, err)
			assert.Equal(t, tt.section, v.Header().Name)
			tt.check(t, v)
		})
	}
}

func TestOpen_MapsImage(t *testing.T) {
	b := testutil.NewELF(testutil.ELFClass32)
	b.AddSection(testutil.ELFSection{Name: ".data", Type: testutil.SHTProgBits, Data: []byte{7}})
	path := testutil.WriteImage(t, b.Bytes())

	f, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	s, err := f.SectionByName(".data")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, 1, s.Index)
}

func TestSectionType_String(t *testing.T) {
	assert.Equal(t, "SYMTAB", SectionTypeSymTab.String())
	assert.Equal(t, "LOPROC+0x1", (SectionTypeLoProc + 1).String())
	assert.Equal(t, "0x42", SectionType(0x42).String())
}
